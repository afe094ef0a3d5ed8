package infra

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedis("redis://"+mr.Addr(), time.Second)
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	_, err = NewRedis("esto-no-es-una-url", time.Second)
	assert.Error(t, err, "una URL invalida debe fallar al parsear")

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedis("redis://"+addr, time.Second)
	assert.Error(t, err, "un redis caido debe fallar el ping de arranque")
}
