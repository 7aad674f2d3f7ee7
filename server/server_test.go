package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/growcfd/model_problems/Climate3D"
)

func testCase(maxIter int) json.RawMessage {
	c := map[string]interface{}{
		"Title":  "duct",
		"Domain": map[string]interface{}{"Size": []float64{2, 1, 1}, "Cells": []int{4, 2, 2}},
		"Solver": map[string]interface{}{
			"MaxIterations": maxIter, "MinIterations": maxIter, "Turbulence": "laminar",
		},
		"Boundaries": []map[string]interface{}{
			{"Type": "inlet", "Face": "xmin", "Velocity": []float64{0.2, 0, 0}, "Temperature": 21},
			{"Type": "outlet", "Face": "xmax"},
		},
	}
	data, _ := json.Marshal(c)
	return data
}

func dial(t *testing.T) (conn *websocket.Conn) {
	logger := log.New()
	logger.SetOutput(io.Discard)
	s := NewServer("", websocket.Upgrader{}, logger)
	ts := httptest.NewServer(s.Handler(context.Background()))
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return
}

func read(t *testing.T, conn *websocket.Conn) (msg Msg) {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(30*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return
}

func TestServerRunsCase(t *testing.T) {
	conn := dial(t)
	require.NoError(t, conn.WriteJSON(Msg{Type: MsgStart, Content: testCase(12)}))

	msg := read(t, conn)
	require.Equal(t, MsgStarted, msg.Type)
	var progress []int
	for {
		msg = read(t, conn)
		if msg.Type != MsgProgress {
			break
		}
		var p struct {
			Iteration int    `json:"iteration"`
			State     string `json:"state"`
		}
		require.NoError(t, json.Unmarshal(msg.Content, &p))
		progress = append(progress, p.Iteration)
	}
	require.Equal(t, MsgResult, msg.Type)
	var sum Climate3D.Summary
	require.NoError(t, json.Unmarshal(msg.Content, &sum))
	assert.Equal(t, "duct", sum.Title)
	assert.Equal(t, 12, sum.Iterations)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, progress)
	assert.InDelta(t, 0.2, sum.Metrics.InletFlow, 1e-9)
	assert.InDelta(t, 21., sum.Metrics.InletTemperature, 1e-9)
}

func TestServerStopAndErrors(t *testing.T) {
	conn := dial(t)

	require.NoError(t, conn.WriteJSON(Msg{Type: "pause"}))
	msg := read(t, conn)
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, string(msg.Content), "pause")

	require.NoError(t, conn.WriteJSON(Msg{Type: MsgStart, Content: json.RawMessage(`{"Domain": {"Size": [1, 1]}}`)}))
	msg = read(t, conn)
	assert.Equal(t, MsgError, msg.Type)

	require.NoError(t, conn.WriteJSON(Msg{Type: MsgStart, Content: testCase(1000000)}))
	require.Equal(t, MsgStarted, read(t, conn).Type)
	require.NoError(t, conn.WriteJSON(Msg{Type: MsgStart, Content: testCase(10)}))
	for msg = read(t, conn); msg.Type == MsgProgress; msg = read(t, conn) {
	}
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, string(msg.Content), "already running")

	require.NoError(t, conn.WriteJSON(Msg{Type: MsgStop}))
	for msg = read(t, conn); msg.Type == MsgProgress; msg = read(t, conn) {
	}
	assert.Equal(t, MsgStopped, msg.Type)
	msg = read(t, conn)
	require.Equal(t, MsgResult, msg.Type)
	var sum Climate3D.Summary
	require.NoError(t, json.Unmarshal(msg.Content, &sum))
	assert.Equal(t, "Cancelled", sum.Status)
	assert.False(t, sum.Converged)
}
