package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klingon-tech/chainlet/internal/utxo"
	"github.com/klingon-tech/chainlet/internal/wire"
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/types"
)

type fakeChain struct {
	tip    types.Hash
	chain  []types.Hash
	blocks map[types.Hash]*block.Block
	states map[types.Hash]utxo.State
}

func (f *fakeChain) Tip() types.Hash            { return f.tip }
func (f *fakeChain) LongestChain() []types.Hash { return f.chain }
func (f *fakeChain) Block(hash types.Hash) (*block.Block, bool) {
	b, ok := f.blocks[hash]
	return b, ok
}
func (f *fakeChain) State(hash types.Hash) (utxo.State, bool) {
	s, ok := f.states[hash]
	return s, ok
}

type fakeMiner struct{ lambda uint64 }

func (f *fakeMiner) Start(lambda uint64) { f.lambda = lambda }

type fakeGenerator struct{ theta uint64 }

func (f *fakeGenerator) Start(theta uint64) { f.theta = theta }

type fakePeers struct{ broadcast []*wire.Envelope }

func (f *fakePeers) Broadcast(env *wire.Envelope) { f.broadcast = append(f.broadcast, env) }

func newTestServer() (*Server, *fakeChain, *fakeMiner, *fakeGenerator, *fakePeers) {
	chain := &fakeChain{blocks: map[types.Hash]*block.Block{}, states: map[types.Hash]utxo.State{}}
	miner := &fakeMiner{}
	generator := &fakeGenerator{}
	peers := &fakePeers{}
	return New("127.0.0.1:0", chain, miner, generator, peers), chain, miner, generator, peers
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestHandleState_EncodesOutpointKeyedStateAsJSON(t *testing.T) {
	s, chain, _, _, _ := newTestServer()

	hash := types.Hash{0x01}
	op := types.Outpoint{TxHash: types.Hash{0xAA}, Index: 2}
	chain.states[hash] = utxo.State{
		op: utxo.Output{Recipient: types.Address{0xBB}, Value: 100},
	}

	req := httptest.NewRequest(http.MethodGet, "/state/"+hash.String(), nil)
	rec := httptest.NewRecorder()
	s.handleState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %+v (body %q)", env, rec.Body.String())
	}

	result, ok := env.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result is %T, want map[string]interface{}", env.Result)
	}
	if _, ok := result[op.String()]; !ok {
		t.Fatalf("result missing outpoint key %q: %+v", op.String(), result)
	}
}

func TestHandleState_UnknownBlockReturnsNotFound(t *testing.T) {
	s, _, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/state/"+types.Hash{0x99}.String(), nil)
	rec := httptest.NewRecorder()
	s.handleState(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Fatal("expected failure envelope for unknown block")
	}
}

func TestHandleState_RejectsMalformedHash(t *testing.T) {
	s, _, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/state/not-hex", nil)
	rec := httptest.NewRecorder()
	s.handleState(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleChain_ReturnsHashesInOrder(t *testing.T) {
	s, chain, _, _, _ := newTestServer()
	chain.chain = []types.Hash{{0x01}, {0x02}, {0x03}}

	req := httptest.NewRequest(http.MethodGet, "/chain", nil)
	rec := httptest.NewRecorder()
	s.handleChain(rec, req)

	env := decodeEnvelope(t, rec)
	result, ok := env.Result.([]interface{})
	if !ok || len(result) != 3 {
		t.Fatalf("result = %+v, want 3-element slice", env.Result)
	}
	if result[0] != chain.chain[0].String() {
		t.Fatalf("result[0] = %v, want %v", result[0], chain.chain[0].String())
	}
}

func TestHandleBlock_ReturnsContentForKnownHash(t *testing.T) {
	s, chain, _, _, _ := newTestServer()
	hash := types.Hash{0x07}
	chain.blocks[hash] = &block.Block{Header: &block.Header{}}

	req := httptest.NewRequest(http.MethodGet, "/block/"+hash.String(), nil)
	rec := httptest.NewRecorder()
	s.handleBlock(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleBlock_UnknownHashReturnsNotFound(t *testing.T) {
	s, _, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/block/"+types.Hash{0x42}.String(), nil)
	rec := httptest.NewRecorder()
	s.handleBlock(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleMinerStart_StartsMinerWithRequestedLambda(t *testing.T) {
	s, _, miner, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/miner/start", strings.NewReader(`{"lambda":500}`))
	rec := httptest.NewRecorder()
	s.handleMinerStart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if miner.lambda != 500 {
		t.Fatalf("miner.lambda = %d, want 500", miner.lambda)
	}
}

func TestHandleMinerStart_RejectsNonPOST(t *testing.T) {
	s, _, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/miner/start", nil)
	rec := httptest.NewRecorder()
	s.handleMinerStart(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleGeneratorStart_StartsGeneratorWithRequestedTheta(t *testing.T) {
	s, _, _, generator, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/generator/start", strings.NewReader(`{"theta":7}`))
	rec := httptest.NewRecorder()
	s.handleGeneratorStart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if generator.theta != 7 {
		t.Fatalf("generator.theta = %d, want 7", generator.theta)
	}
}

func TestHandlePing_BroadcastsEnvelope(t *testing.T) {
	s, _, _, _, peers := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/ping", strings.NewReader(`{"nonce":"abc"}`))
	rec := httptest.NewRecorder()
	s.handlePing(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(peers.broadcast) != 1 || peers.broadcast[0].Command != wire.CmdPing {
		t.Fatalf("broadcast = %+v, want one CmdPing envelope", peers.broadcast)
	}
}

func TestHandleMinerStart_RejectsInvalidJSON(t *testing.T) {
	s, _, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/miner/start", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	s.handleMinerStart(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
