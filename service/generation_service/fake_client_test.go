package generation_service

import (
	"context"
	"sync"
)

// fakeClient records calls and replays canned answers.
type fakeClient struct {
	mu sync.Mutex

	content      *ContentResult
	contentErr   error
	lastModel    string
	lastParts    []Part
	lastConfig   *ContentConfig
	contentCalls int

	recontext    []byte
	recontextErr error

	startOp   VideoOperation
	startErr  error
	pollSeq   []VideoOperation
	pollErr   error
	pollCalls int
	lastVideo VideoRequest
}

func (f *fakeClient) GenerateContent(ctx context.Context, model string, parts []Part, cfg *ContentConfig) (*ContentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contentCalls++
	f.lastModel, f.lastParts, f.lastConfig = model, parts, cfg
	return f.content, f.contentErr
}

func (f *fakeClient) RecontextImage(ctx context.Context, model string, person, product []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastModel = model
	return f.recontext, f.recontextErr
}

func (f *fakeClient) StartVideo(ctx context.Context, model string, req VideoRequest) (VideoOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastModel, f.lastVideo = model, req
	return f.startOp, f.startErr
}

func (f *fakeClient) PollVideo(ctx context.Context, op VideoOperation) (VideoOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	i := f.pollCalls
	f.pollCalls++
	if i >= len(f.pollSeq) {
		return fakeOp{}, nil
	}
	return f.pollSeq[i], nil
}

type fakeOp struct {
	done   bool
	videos [][]byte
	err    error
}

func (o fakeOp) Done() bool       { return o.done }
func (o fakeOp) Videos() [][]byte { return o.videos }
func (o fakeOp) Err() error       { return o.err }
