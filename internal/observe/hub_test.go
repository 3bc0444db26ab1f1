package observe_test

import (
	"testing"

	"github.com/jrsteele09/trigpoint-web/internal/observe"
	"github.com/stretchr/testify/require"
)

func TestHub_SubscribePublishCancel(t *testing.T) {
	var hub observe.Hub[int]
	var got []int

	cancel := hub.Subscribe(func(v int) { got = append(got, v) })
	hub.Publish(1)
	hub.Publish(2)
	cancel()
	cancel()
	hub.Publish(3)

	require.Equal(t, []int{1, 2}, got)
}
