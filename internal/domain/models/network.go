package models

import (
	"time"

	"github.com/google/uuid"
)

type NetworkQuality string

const (
	NetworkQualityExcellent NetworkQuality = "excellent"
	NetworkQualityGood      NetworkQuality = "good"
	NetworkQualityPoor      NetworkQuality = "poor"
	NetworkQualityBad       NetworkQuality = "bad"
	NetworkQualityVeryBad   NetworkQuality = "very_bad"
	NetworkQualityDown      NetworkQuality = "down"
)

func (q NetworkQuality) Valid() bool {
	switch q {
	case NetworkQualityExcellent, NetworkQualityGood, NetworkQualityPoor,
		NetworkQualityBad, NetworkQualityVeryBad, NetworkQualityDown:
		return true
	}

	return false
}

// Degraded - качество, при котором нужен приоритет аудио
func (q NetworkQuality) Degraded() bool {
	switch q {
	case NetworkQualityPoor, NetworkQualityBad, NetworkQualityVeryBad, NetworkQualityDown:
		return true
	}

	return false
}

type NetworkQualitySample struct {
	UserID     uuid.UUID      `json:"userId"`
	MeetingID  uuid.UUID      `json:"meetingId"`
	Quality    NetworkQuality `json:"quality"`
	RTT        int            `json:"rtt"`
	PacketLoss float64        `json:"packetLoss"`
	Bandwidth  int            `json:"bandwidth"`
	Timestamp  time.Time      `json:"timestamp"`
}

type Recommendation struct {
	EnableAudioPriority    bool     `json:"enableAudioPriority"`
	RecommendedBitrateKbps int      `json:"recommendedBitrateKbps"`
	PacketLossAcceptable   bool     `json:"packetLossAcceptable"`
	Actions                []string `json:"actions"`
}

type ReconnectStatus string

const (
	ReconnectStatusIdle            ReconnectStatus = "idle"
	ReconnectStatusAwaitingBackoff ReconnectStatus = "awaiting-backoff"
	ReconnectStatusAttempting      ReconnectStatus = "attempting"
	ReconnectStatusExhausted       ReconnectStatus = "exhausted"
)

type ReconnectionState struct {
	UserID            uuid.UUID `json:"userId"`
	MeetingID         uuid.UUID `json:"meetingId"`
	AttemptCount      int       `json:"attemptCount"`
	LastAttempt       time.Time `json:"lastAttempt"`
	NextAttempt       time.Time `json:"nextAttempt"`
	MaxAttempts       int       `json:"maxAttempts"`
	BackoffMultiplier float64   `json:"backoffMultiplier"`
}

func (s ReconnectionState) Exhausted() bool {
	return s.AttemptCount >= s.MaxAttempts
}

// StatusAt вычисляет состояние автомата на момент now
func (s ReconnectionState) StatusAt(now time.Time) ReconnectStatus {
	switch {
	case s.Exhausted():
		return ReconnectStatusExhausted
	case now.Before(s.NextAttempt):
		return ReconnectStatusAwaitingBackoff
	default:
		return ReconnectStatusAttempting
	}
}
