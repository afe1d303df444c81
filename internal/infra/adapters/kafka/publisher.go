package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/application/metric"
	"github.com/qrave1/RoomMeet/internal/domain/events"
)

const eventHeader = "event"

func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.Flush.Frequency = 100 * time.Millisecond

	return cfg
}

func NewAsyncProducer(brokers []string) (sarama.AsyncProducer, error) {
	producer, err := sarama.NewAsyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return producer, nil
}

var ErrPublisherClosed = errors.New("kafka publisher closed")

const defaultQueueSize = 256

// Publisher дублирует события встреч в топик Kafka для сервиса уведомлений.
// Ключ сообщения - meetingId, поэтому события одной встречи попадают в одну партицию.
// Вход продюсера sarama не буферизован, поэтому сообщения идут через собственную очередь,
// которую разбирает Run.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string

	queue chan *sarama.ProducerMessage
	done  chan struct{}
}

func NewPublisher(producer sarama.AsyncProducer, topic string) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		queue:    make(chan *sarama.ProducerMessage, defaultQueueSize),
		done:     make(chan struct{}),
	}
}

// Broadcast ставит событие в очередь и ждёт места в ней, пока жив ctx
func (p *Publisher) Broadcast(ctx context.Context, meetingID uuid.UUID, event string, payload events.Payload) error {
	value, err := events.Encode(event, payload)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(meetingID.String()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(eventHeader), Value: []byte(event)},
		},
	}

	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}

	select {
	case p.queue <- msg:
		return nil
	case <-p.done:
		return ErrPublisherClosed
	case <-ctx.Done():
		metric.AddBroadcastDropped(1)

		return fmt.Errorf("enqueue %s event: %w", event, ctx.Err())
	}
}

// Run передаёт очередь продюсеру и читает ошибки доставки. После отмены ctx
// дописывает оставшуюся очередь и закрывает продюсер.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(p.done)
			p.flush()

			if err := p.producer.Close(); err != nil {
				return fmt.Errorf("close kafka producer: %w", err)
			}

			return nil
		case msg := <-p.queue:
			p.send(ctx.Done(), msg)
		case perr, ok := <-p.producer.Errors():
			if !ok {
				return nil
			}

			p.logError(perr)
		}
	}
}

// send отдаёт сообщение продюсеру. Пока вход занят, читаются ошибки, иначе диспетчер sarama встанет.
func (p *Publisher) send(stop <-chan struct{}, msg *sarama.ProducerMessage) {
	errs := p.producer.Errors()

	for {
		select {
		case p.producer.Input() <- msg:
			return
		case perr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}

			p.logError(perr)
		case <-stop:
			metric.AddBroadcastDropped(1)
			slog.Warn("kafka publisher stopped, event dropped", slog.String("topic", msg.Topic))

			return
		}
	}
}

func (p *Publisher) flush() {
	for {
		select {
		case msg := <-p.queue:
			p.send(nil, msg)
		default:
			return
		}
	}
}

func (p *Publisher) logError(perr *sarama.ProducerError) {
	metric.AddBroadcastDropped(1)
	slog.Error(
		"publish meeting event",
		slog.Any(constant.Error, perr.Err),
		slog.String("topic", perr.Msg.Topic),
	)
}
