package observability

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/danmuck/irlink/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitLoggerDoesNotStackAppField(t *testing.T) {
	testlog.Start(t)
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		baseOnce = sync.Once{}
	})

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	baseOnce = sync.Once{}

	InitLogger("irlinkctl")
	InitLogger("irlinkctl")
	InitLogger("irlinkctl")
	log.Info().Msg("tagged")

	if got := strings.Count(buf.String(), `"app"`); got != 1 {
		t.Fatalf("app field count got=%d want=1 line=%q", got, buf.String())
	}
	if !LoggerInitialized() {
		t.Fatalf("expected logger to be marked initialized")
	}
}
