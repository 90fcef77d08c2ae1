package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dot-do/functions-gateway/internal/humantask"
	"github.com/dot-do/functions-gateway/internal/model"
)

type fakeSandbox struct {
	output any
	err    error
	delay  time.Duration
}

func (f *fakeSandbox) Run(ctx context.Context, code, artifact string, input json.RawMessage) (any, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.output, f.err
}

type fakeMessages struct {
	result CreateMessageResult
	err    error
}

func (f *fakeMessages) CreateMessage(ctx context.Context, model string, prompts []string, input json.RawMessage) (CreateMessageResult, error) {
	return f.result, f.err
}

type fakeChat struct {
	result ChatResult
	err    error
}

func (f *fakeChat) Chat(ctx context.Context, goal string, input json.RawMessage, tools []string, caller ToolCaller) (ChatResult, error) {
	return f.result, f.err
}

func TestDispatch_CodeMissingCode(t *testing.T) {
	d := New(&fakeSandbox{}, nil, nil, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{Metadata: model.FunctionMetadata{ID: "fn", Type: model.KindCode}})
	require.Equal(t, 404, res.Status)
	require.Contains(t, res.Body.Error, "not found")
}

func TestDispatch_CodeMissingSandbox(t *testing.T) {
	d := New(nil, nil, nil, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{
		Metadata: model.FunctionMetadata{ID: "fn", Type: model.KindCode},
		Code:     &model.FunctionCode{Source: "x"},
	})
	require.Equal(t, 501, res.Status)
}

func TestDispatch_CodeSuccess(t *testing.T) {
	d := New(&fakeSandbox{output: map[string]any{"x": 1}}, nil, nil, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{
		Metadata: model.FunctionMetadata{ID: "fn", Type: model.KindCode},
		Code:     &model.FunctionCode{Source: "x"},
	})
	require.Equal(t, 200, res.Status)
	require.Equal(t, 1, res.Body.Meta.Tier)
	require.Equal(t, "code", res.Body.Meta.ExecutorType)
}

func TestDispatch_DefaultsToCodeWhenTypeAbsent(t *testing.T) {
	d := New(&fakeSandbox{output: "ok"}, nil, nil, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{
		Metadata: model.FunctionMetadata{ID: "fn"},
		Code:     &model.FunctionCode{Source: "x"},
	})
	require.Equal(t, 200, res.Status)
	require.Equal(t, 1, res.Body.Meta.Tier)
}

func TestDispatch_GenerativeMissingLLM(t *testing.T) {
	d := New(nil, nil, nil, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{Metadata: model.FunctionMetadata{ID: "fn", Type: model.KindGenerative}})
	require.Equal(t, 503, res.Status)
}

func TestDispatch_GenerativeSuccess(t *testing.T) {
	d := New(nil, &fakeMessages{result: CreateMessageResult{Output: "hi", Tokens: TokenUsage{Input: 10, Output: 5}}}, nil, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{Metadata: model.FunctionMetadata{ID: "fn", Type: model.KindGenerative, Model: "gpt"}})
	require.Equal(t, 200, res.Status)
	require.NotNil(t, res.Body.Meta.GenerativeExecution)
	require.Equal(t, "gpt", res.Body.Meta.GenerativeExecution.Model)
}

func TestDispatch_AgenticMissingLLM(t *testing.T) {
	d := New(nil, nil, nil, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{Metadata: model.FunctionMetadata{ID: "fn", Type: model.KindAgentic}})
	require.Equal(t, 503, res.Status)
}

func TestDispatch_AgenticSuccess(t *testing.T) {
	d := New(nil, nil, &fakeChat{result: ChatResult{Output: "done", ToolCalls: 2, ToolsUsed: []string{"web_fetch"}}}, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{Metadata: model.FunctionMetadata{ID: "fn", Type: model.KindAgentic}})
	require.Equal(t, 200, res.Status)
	require.Equal(t, 2, res.Body.Meta.AgenticExecution.ToolCalls)
}

func TestDispatch_HumanReturnsAccepted(t *testing.T) {
	d := New(nil, nil, nil, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{Metadata: model.FunctionMetadata{ID: "approve-refund", Type: model.KindHuman}})
	require.Equal(t, 202, res.Status)
	require.NotEmpty(t, res.Body.TaskID)
	require.Equal(t, "pending", res.Body.TaskStatus)
	require.Equal(t, 4, res.Body.Meta.Tier)
}

func TestDispatch_ExecutorFailureIs500(t *testing.T) {
	d := New(&fakeSandbox{err: errors.New("boom")}, nil, nil, nil, humantask.NewStore(nil))
	res := d.Dispatch(context.Background(), Request{
		Metadata: model.FunctionMetadata{ID: "fn", Type: model.KindCode},
		Code:     &model.FunctionCode{Source: "x"},
	})
	require.Equal(t, 500, res.Status)
}

func TestParseSLA(t *testing.T) {
	require.Equal(t, 30*time.Second, parseSLA("30s", time.Hour))
	require.Equal(t, 5*time.Minute, parseSLA("5m", time.Hour))
	require.Equal(t, 2*time.Hour, parseSLA("2h", time.Minute))
	require.Equal(t, 3*24*time.Hour, parseSLA("3d", time.Minute))
	require.Equal(t, time.Hour, parseSLA("", time.Hour))
	require.Equal(t, time.Hour, parseSLA("garbage", time.Hour))
}
