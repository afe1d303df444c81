package media

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/qrave1/RoomMeet/internal/domain/models"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *CloudProvider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewCloudProvider(Options{
		BaseURL:        srv.URL + "/",
		AppID:          "app",
		AppCertificate: "cert",
		CustomerID:     "cust",
		CustomerSecret: "secret",
	}, clockwork.NewRealClock())
}

func TestConfigured(t *testing.T) {
	p := NewCloudProvider(Options{AppID: "app"}, clockwork.NewRealClock())
	if p.Configured() {
		t.Fatal("provider without certificate must not be configured")
	}

	if _, err := p.JoinToken(context.Background(), "c", 1, models.TransportRolePublisher); err == nil {
		t.Fatal("unconfigured provider must not sign tokens")
	}
}

func TestJoinToken(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	p := NewCloudProvider(Options{AppID: "app", AppCertificate: "cert", TokenTTL: time.Hour}, clock)

	raw, err := p.JoinToken(context.Background(), "meeting_abc", 77, models.TransportRoleSubscriber)
	if err != nil {
		t.Fatalf("join token: %v", err)
	}

	var claims joinClaims

	_, err = jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte("cert"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}

	if claims.Channel != "meeting_abc" || claims.UID != 77 || claims.Role != "subscriber" {
		t.Fatalf("claims = %+v", claims)
	}

	if got := claims.ExpiresAt.Sub(clock.Now()); got < 59*time.Minute || got > time.Hour {
		t.Fatalf("ttl = %v", got)
	}
}

func TestRecordingLifecycle(t *testing.T) {
	var paths []string

	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cust" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var req recordingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cname != "meeting_abc" || req.UID != "9" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		paths = append(paths, r.URL.Path)

		switch r.URL.Path {
		case "/v1/apps/app/cloud_recording/acquire":
			_, _ = w.Write([]byte(`{"resourceId":"rid-1"}`))
		case "/v1/apps/app/cloud_recording/resourceid/rid-1/mode/mix/start":
			if req.ClientRequest["token"] != "tok" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			_, _ = w.Write([]byte(`{"resourceId":"rid-1","sid":"sid-1"}`))
		case "/v1/apps/app/cloud_recording/resourceid/rid-1/sid/sid-1/mode/mix/stop":
			_, _ = w.Write([]byte(`{"sid":"sid-1","serverResponse":{"fileList":[{"fileName":"a.m3u8"},{"fileName":"a_0.ts"}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()

	rid, err := p.AcquireRecording(ctx, "meeting_abc", 9)
	if err != nil || rid != "rid-1" {
		t.Fatalf("acquire = %q, %v", rid, err)
	}

	sid, err := p.StartRecording(ctx, "meeting_abc", 9, rid, "tok")
	if err != nil || sid != "sid-1" {
		t.Fatalf("start = %q, %v", sid, err)
	}

	files, err := p.StopRecording(ctx, "meeting_abc", 9, rid, sid)
	if err != nil || len(files) != 2 || files[0] != "a.m3u8" {
		t.Fatalf("stop = %v, %v", files, err)
	}

	if len(paths) != 3 {
		t.Fatalf("calls = %v", paths)
	}
}

func TestNon2xxIsError(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"reason":"boom"}`))
	})

	if _, err := p.AcquireRecording(context.Background(), "meeting_abc", 9); err == nil {
		t.Fatal("5xx must be an error")
	}
}
