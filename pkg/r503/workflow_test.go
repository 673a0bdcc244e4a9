package r503

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/status"
	"github.com/go-ctap/fingerprint/pkg/workflow"
)

func workflowOptions() []options.Option {
	return []options.Option{
		options.WithLogger(testLogger()),
		options.WithCaptureTimeout(time.Second),
		options.WithPollInterval(time.Millisecond),
	}
}

func commands(packets []*Packet) []Command {
	cmds := make([]Command, 0, len(packets))
	for _, p := range packets {
		if p.PID == PIDCommand {
			cmds = append(cmds, Command(p.Payload[0]))
		}
	}
	return cmds
}

func TestEnroll_ReadsCombinedModel(t *testing.T) {
	dev, port := newTestDevice(t)

	port.ack(t, CodeOK)       // GenImg
	port.ack(t, CodeOK)       // Img2Tz 1
	port.ack(t, CodeNoFinger) // GenImg, finger removed
	port.ack(t, CodeOK)       // GenImg
	port.ack(t, CodeOK)       // Img2Tz 2
	port.ack(t, CodeOK)       // RegModel
	port.ack(t, CodeOK)       // UpChar
	port.queue(t, PIDData, 0x03, 0x03, 0x5a)
	port.queue(t, PIDEndData, 0x1e, 0x81)

	ch := status.NewChannel(testLogger())
	tpl, err := workflow.NewEnroller(dev, ch, workflowOptions()...).Enroll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x03, 0x5a, 0x1e, 0x81}, tpl)

	sent := port.sent(t)
	assert.Equal(t, []Command{
		CommandGetImage,
		CommandImage2Tz,
		CommandGetImage,
		CommandGetImage,
		CommandImage2Tz,
		CommandRegModel,
		CommandUpChar,
	}, commands(sent))
	assert.Equal(t, []byte{byte(CommandUpChar), 0x01}, sent[len(sent)-1].Payload)
}

func TestUpload_StoresFeatureBuffer(t *testing.T) {
	dev, port := newTestDevice(t)

	table := make([]byte, 32)
	table[0] = 0b0000_0011
	port.ack(t, CodeOK, table...) // ReadIndexTable
	port.ack(t, CodeOK)           // DownChar
	port.ack(t, CodeOK)           // Store

	ch := status.NewChannel(testLogger())
	slot, err := workflow.NewIdentifier(dev, ch, workflowOptions()...).Upload(context.Background(), []byte{0x03, 0x03, 0x5a})
	require.NoError(t, err)
	assert.Equal(t, 2, slot)

	sent := port.sent(t)
	assert.Equal(t, []Command{CommandReadIndex, CommandDownChar, CommandStore}, commands(sent))
	assert.Equal(t, []byte{byte(CommandDownChar), 0x02}, sent[1].Payload)
	assert.Equal(t, PIDEndData, sent[2].PID)
	assert.Equal(t, []byte{0x03, 0x03, 0x5a}, sent[2].Payload)
	assert.Equal(t, []byte{byte(CommandStore), 0x02, 0x00, 0x02}, sent[3].Payload)
}
