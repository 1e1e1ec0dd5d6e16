package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avelinov/trendwatch/internal/platform/logger"
)

// an unknown model name forces the word-count fallback, keeping the test
// independent of encoding data files
func fallbackEstimator(t *testing.T) *Estimator {
	t.Helper()
	return NewEstimator("not-a-real-model", logger.NewNop())
}

func TestEstimateEmpty(t *testing.T) {
	e := fallbackEstimator(t)
	assert.Equal(t, 0, e.Estimate(""))
}

func TestEstimateWhitespaceOnly(t *testing.T) {
	e := fallbackEstimator(t)
	assert.Equal(t, 1, e.Estimate("   \n\t  "))
}

func TestEstimateFallbackScalesWithWords(t *testing.T) {
	e := fallbackEstimator(t)
	// 10 words at 1.3 tokens per word
	assert.Equal(t, 13, e.Estimate(strings.TrimSpace(strings.Repeat("word ", 10))))
}

func TestEstimateDeterministic(t *testing.T) {
	e := fallbackEstimator(t)
	text := "the same text must always cost the same"
	assert.Equal(t, e.Estimate(text), e.Estimate(text))
}

func TestEstimateMonotonic(t *testing.T) {
	e := fallbackEstimator(t)
	short := "a few words here"
	long := short + " and then a considerably longer continuation of the text"
	assert.GreaterOrEqual(t, e.Estimate(long), e.Estimate(short))
}
