package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeDomain(t *testing.T) {
	assert.Equal(t, "galaxus_de", SanitizeDomain("www.galaxus.de"))
	assert.Equal(t, "en_zalando_de", SanitizeDomain("en.zalando.de"))
	assert.Equal(t, "ikea_com", SanitizeDomain("IKEA.com"))
}

func TestHostKey(t *testing.T) {
	key, err := HostKey("https://www.ikea.com/de/de/p/kallax-regal-weiss-80275887/")
	require.NoError(t, err)
	assert.Equal(t, "ikea_com", key)

	_, err = HostKey("/relative/path")
	assert.Error(t, err)
}

func TestHashKeyIsStable(t *testing.T) {
	assert.Equal(t, HashKey("galaxus.de"), HashKey("galaxus.de"))
	assert.NotEqual(t, HashKey("galaxus.de"), HashKey("otto.de"))
	assert.Len(t, HashKey("x"), 64)
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
