package notify_test

import (
	"bytes"
	"log/slog"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-onboarding/internal/log"
	"policy-onboarding/internal/notify"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLog(log.NewWithWriter(&buf, "svc", "test", "dev", slog.LevelInfo))
	n.Notify(notify.KindError, "Submission failed", "policy could not be created")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "error", rec["kind"])
	assert.Equal(t, "Submission failed", rec["title"])
}

func TestFuncNotifier(t *testing.T) {
	var got []notify.Kind
	n := notify.Func(func(k notify.Kind, _, _ string) { got = append(got, k) })
	n.Notify(notify.KindInfo, "a", "b")
	notify.Discard.Notify(notify.KindError, "c", "d")
	assert.Equal(t, []notify.Kind{notify.KindInfo}, got)
}
