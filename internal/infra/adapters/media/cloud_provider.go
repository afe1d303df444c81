package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/domain/models"
)

const (
	recordingMaxIdleTime = 30
	// только аудио
	recordingStreamTypes  = 0
	resourceExpiredHours  = 24
	maxErrorBodyBytes     = 4 << 10
	defaultRequestTimeout = 10 * time.Second
	defaultTokenTTL       = time.Hour
)

var ErrNotConfigured = errors.New("media provider credentials are not set")

type Options struct {
	BaseURL        string
	AppID          string
	AppCertificate string
	CustomerID     string
	CustomerSecret string
	TokenTTL       time.Duration
	Timeout        time.Duration
}

// CloudProvider выдает токены входа в канал и управляет облачной записью через REST API провайдера
type CloudProvider struct {
	opts   Options
	client *http.Client
	clock  clockwork.Clock
}

func NewCloudProvider(opts Options, clock clockwork.Clock) *CloudProvider {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &CloudProvider{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		clock:  clock,
	}
}

func (p *CloudProvider) Configured() bool {
	return p.opts.AppID != "" && p.opts.AppCertificate != ""
}

type joinClaims struct {
	Channel string `json:"channel"`
	UID     uint32 `json:"uid"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

func (p *CloudProvider) JoinToken(_ context.Context, channelID string, uid uint32, role models.TransportRole) (string, error) {
	if !p.Configured() {
		return "", ErrNotConfigured
	}

	now := p.clock.Now()

	claims := joinClaims{
		Channel: channelID,
		UID:     uid,
		Role:    string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.opts.AppID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.opts.TokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.opts.AppCertificate))
	if err != nil {
		return "", fmt.Errorf("sign join token: %w", err)
	}

	return token, nil
}

type recordingRequest struct {
	Cname         string         `json:"cname"`
	UID           string         `json:"uid"`
	ClientRequest map[string]any `json:"clientRequest"`
}

type recordingResponse struct {
	ResourceID     string `json:"resourceId"`
	SID            string `json:"sid"`
	ServerResponse struct {
		FileList []struct {
			FileName string `json:"fileName"`
		} `json:"fileList"`
	} `json:"serverResponse"`
}

func (p *CloudProvider) AcquireRecording(ctx context.Context, channelID string, uid uint32) (string, error) {
	var resp recordingResponse

	err := p.call(ctx, "acquire", recordingRequest{
		Cname: channelID,
		UID:   strconv.FormatUint(uint64(uid), 10),
		ClientRequest: map[string]any{
			"resourceExpiredHour": resourceExpiredHours,
		},
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.ResourceID == "" {
		return "", errors.New("acquire: empty resource id")
	}

	return resp.ResourceID, nil
}

func (p *CloudProvider) StartRecording(
	ctx context.Context,
	channelID string,
	uid uint32,
	resourceID, token string,
) (string, error) {
	var resp recordingResponse

	err := p.call(ctx, "resourceid/"+resourceID+"/mode/mix/start", recordingRequest{
		Cname: channelID,
		UID:   strconv.FormatUint(uint64(uid), 10),
		ClientRequest: map[string]any{
			"token": token,
			"recordingConfig": map[string]any{
				"maxIdleTime": recordingMaxIdleTime,
				"streamTypes": recordingStreamTypes,
			},
		},
	}, &resp)
	if err != nil {
		return "", err
	}

	slog.Info(
		"cloud recording started",
		slog.String(constant.ChannelID, channelID),
		slog.String("sid", resp.SID),
	)

	return resp.SID, nil
}

func (p *CloudProvider) StopRecording(
	ctx context.Context,
	channelID string,
	uid uint32,
	resourceID, sessionID string,
) ([]string, error) {
	var resp recordingResponse

	err := p.call(ctx, "resourceid/"+resourceID+"/sid/"+sessionID+"/mode/mix/stop", recordingRequest{
		Cname:         channelID,
		UID:           strconv.FormatUint(uint64(uid), 10),
		ClientRequest: map[string]any{},
	}, &resp)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(resp.ServerResponse.FileList))
	for _, f := range resp.ServerResponse.FileList {
		files = append(files, f.FileName)
	}

	return files, nil
}

func (p *CloudProvider) call(ctx context.Context, path string, body, out any) error {
	if !p.Configured() {
		return ErrNotConfigured
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	url := p.opts.BaseURL + "/v1/apps/" + p.opts.AppID + "/cloud_recording/" + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.credentials())

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("call %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

// credentials: ключи клиента, если заданы, иначе ключи приложения
func (p *CloudProvider) credentials() (string, string) {
	if p.opts.CustomerID != "" && p.opts.CustomerSecret != "" {
		return p.opts.CustomerID, p.opts.CustomerSecret
	}

	return p.opts.AppID, p.opts.AppCertificate
}
