package failure_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/temirov/llm-prompter/internal/failure"
)

func TestKindsSurviveWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := failure.Wrap(failure.ErrIO, cause, "write %s", "answer.json")
	wrapped := fmt.Errorf("payload a.sql: %w", err)

	assert.True(t, failure.Is(wrapped, failure.ErrIO))
	assert.False(t, failure.Is(wrapped, failure.ErrBackend))
	assert.True(t, failure.Is(wrapped, cause))
	assert.Contains(t, wrapped.Error(), "write answer.json: disk full")
	assert.Equal(t, "io", failure.Kind(wrapped))
}

func TestWrapNilCauseCreatesKind(t *testing.T) {
	err := failure.Wrap(failure.ErrParse, nil, "bad answer")
	assert.Error(t, err)
	assert.True(t, failure.Is(err, failure.ErrParse))
}

func TestTimeoutIsBackendSubKind(t *testing.T) {
	var err error = &failure.TimeoutError{Backend: "local", Configured: time.Second, Elapsed: 1200 * time.Millisecond}
	err = fmt.Errorf("stage 0: %w", err)

	assert.True(t, failure.IsTimeout(err))
	assert.True(t, failure.Is(err, failure.ErrTimeout))
	assert.True(t, failure.Is(err, failure.ErrBackend))
	assert.Equal(t, "timeout", failure.Kind(err))

	rejected := failure.Newf(failure.ErrBackend, "status 500")
	assert.False(t, failure.IsTimeout(rejected))
	assert.Equal(t, "backend", failure.Kind(rejected))
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", failure.Preview("short", 10))
	assert.Equal(t, "табл…", failure.Preview("таблица", 4))
	assert.True(t, utf8.ValidString(failure.Preview(strings.Repeat("ж", 300), 200)))
	assert.Equal(t, 201, utf8.RuneCountInString(failure.Preview(strings.Repeat("ж", 300), 200)))
}
