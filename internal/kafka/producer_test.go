package kafka

import (
	"context"
	"testing"

	segmentio "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter records written messages.
type fakeWriter struct {
	msgs   []segmentio.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...segmentio.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestSendMessage(t *testing.T) {
	t.Parallel()
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)

	err := p.SendMessage(context.Background(), "audit_logs", []byte("key-1"), []byte(`{"path":"/api/pickups"}`))

	require.NoError(t, err)
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "audit_logs", fw.msgs[0].Topic)
	assert.Equal(t, []byte("key-1"), fw.msgs[0].Key)

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}
