package respenvelope

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResponder(env Environment, opts ...Option) *Responder {
	s := DefaultSettings()
	s.Environment = env
	base := []Option{
		WithSettings(StaticSettings(s)),
		WithLogger(quietLogger()),
	}
	return New(append(base, opts...)...)
}

// decode renders env on the wire and decodes it into a generic map.
func decode(t *testing.T, env Envelope) map[string]any {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return decodeBytes(t, raw)
}

func decodeBytes(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
