package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/dispatch"
	"github.com/soypat/dissect/icq"
	"github.com/soypat/dissect/internal/ltesto"
)

func writeCapture(t *testing.T, n int) string {
	t.Helper()
	var file bytes.Buffer
	cw, err := ltesto.NewCaptureWriter(&file, false)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	var gen ltesto.PacketGen
	gen.Randomize(rng)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			require.NoError(t, cw.WriteUDP(1030, icq.UDPPort, gen.AppendClient(nil, rng, 0x04ba, nil)))
		} else {
			require.NoError(t, cw.WriteUDP(icq.UDPPort, 1030, gen.AppendServer(nil, rng, 0x000a, nil)))
		}
	}
	require.NoError(t, cw.WriteICMP())
	path := filepath.Join(t.TempDir(), "icq.pcap")
	require.NoError(t, os.WriteFile(path, file.Bytes(), 0o600))
	return path
}

func TestRunSummary(t *testing.T) {
	path := writeCapture(t, 20)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-r", path, "-workers", "4"}, nil, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := strings.Split(stdout.String(), "\n")
	require.Greater(t, len(out), 20)
	for i := 0; i < 20; i++ {
		fields := strings.Fields(out[i])
		require.NotEmpty(t, fields)
		assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14", "15", "16", "17", "18", "19", "20"}[i], fields[0], "frames out of order")
		if i%2 == 0 {
			assert.Contains(t, out[i], "ICQv5 CMD_QUERY_SERVERS")
		} else {
			assert.Contains(t, out[i], "ICQv5 SRV_ACK")
		}
	}
	text := stdout.String()
	assert.Contains(t, text, "Count: 21\n")
	assert.Contains(t, text, "UDP: 20 (95.2%)\n")
	assert.Contains(t, text, "ICMP: 1 (4.8%)\n")
}

func TestRunVerbose(t *testing.T) {
	path := writeCapture(t, 1)
	cfgPath := filepath.Join(t.TempDir(), "icqdump.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[engine]\nframe_digest = true\n[log]\nlevel = \"off\"\n"), 0o600))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfgPath, "-r", path, "-V", "-x"}, nil, &stdout, &stderr)
	require.NoError(t, err)
	text := stdout.String()
	assert.Contains(t, text, "Frame 1: ")
	assert.Contains(t, text, "[BLAKE2b-256: ")
	assert.Contains(t, text, "Decrypted (24 bytes):")
	assert.Empty(t, stderr.String(), "logging is off")
}

func TestRunStdinAndErrors(t *testing.T) {
	path := writeCapture(t, 2)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var stdout, stderr bytes.Buffer
	err = run(context.Background(), []string{"-logjson"}, bytes.NewReader(data), &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "SRV_ACK")
	assert.Contains(t, stderr.String(), `"msg":"icqdump:done"`)

	err = run(context.Background(), []string{"-r", filepath.Join(t.TempDir(), "none.pcap")}, nil, io.Discard, io.Discard)
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = run(context.Background(), []string{"-bogus"}, nil, io.Discard, io.Discard)
	assert.Error(t, err)

	err = run(context.Background(), nil, strings.NewReader("not a capture file"), io.Discard, io.Discard)
	assert.Error(t, err)
}

type sliceSource struct {
	frames []dispatch.Frame
	err    error
}

func (s *sliceSource) Next() (dispatch.Frame, error) {
	if len(s.frames) == 0 {
		if s.err != nil {
			return dispatch.Frame{}, s.err
		}
		return dispatch.Frame{}, io.EOF
	}
	frm := s.frames[0]
	s.frames = s.frames[1:]
	return frm, nil
}

func frames(n int) []dispatch.Frame {
	frms := make([]dispatch.Frame, n)
	for i := range frms {
		frms[i] = dispatch.Frame{Number: i + 1, Data: []byte{byte(i)}, Transport: dissect.TransportUDP, SrcPort: 1, DstPort: 2}
	}
	return frms
}

func TestDissectAllOrder(t *testing.T) {
	e := dispatch.NewEngine(dispatch.NewRegistry(), dispatch.EngineConfig{})
	for _, workers := range []int{0, 1, 3, 16} {
		var got []int
		err := dissectAll(context.Background(), &sliceSource{frames: frames(200)}, e, workers, func(res *dispatch.Result) error {
			got = append(got, res.Frame.Number)
			return nil
		})
		require.NoError(t, err)
		require.Len(t, got, 200)
		for i, n := range got {
			require.Equal(t, i+1, n, "workers=%d", workers)
		}
	}
}

func TestDissectAllErrors(t *testing.T) {
	e := dispatch.NewEngine(dispatch.NewRegistry(), dispatch.EngineConfig{})
	errRead := errors.New("read failed")
	count := 0
	err := dissectAll(context.Background(), &sliceSource{frames: frames(5), err: errRead}, e, 2, func(*dispatch.Result) error {
		count++
		return nil
	})
	assert.ErrorIs(t, err, errRead)
	assert.Equal(t, 5, count)

	errEmit := errors.New("emit failed")
	count = 0
	err = dissectAll(context.Background(), &sliceSource{frames: frames(100)}, e, 4, func(*dispatch.Result) error {
		count++
		if count == 3 {
			return errEmit
		}
		return nil
	})
	assert.ErrorIs(t, err, errEmit)
	assert.Equal(t, 3, count)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = dissectAll(ctx, &sliceSource{frames: frames(100)}, e, 4, func(*dispatch.Result) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
