package lifecycle_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"todo-ledger/bitcoin"
	"todo-ledger/bridge/bridgemock"
	"todo-ledger/codec"
	"todo-ledger/core/token"
	"todo-ledger/keys"
	"todo-ledger/lifecycle"
	"todo-ledger/storage/diagnostics"
	"todo-ledger/storage/records"
	"todo-ledger/wallet"
	"todo-ledger/wallet/walletmock"
)

// countingKeys counts key derivations so tests can assert none happened.
type countingKeys struct {
	keys.Provider
	derivations atomic.Int32
}

func (c *countingKeys) SigningKey(ctx context.Context, s token.Scope) (*btcec.PrivateKey, error) {
	c.derivations.Add(1)
	return c.Provider.SigningKey(ctx, s)
}

func (c *countingKeys) SymmetricKey(ctx context.Context, s token.Scope) ([]byte, error) {
	c.derivations.Add(1)
	return c.Provider.SymmetricKey(ctx, s)
}

type brokenKeys struct{ keys.Provider }

func (brokenKeys) IdentityKey(context.Context) (*btcec.PublicKey, error) {
	return nil, errors.New("identity service offline")
}

type collectingRecorder struct {
	events []diagnostics.Event
}

func (c *collectingRecorder) Record(_ context.Context, e diagnostics.Event) error {
	c.events = append(c.events, e)
	return nil
}

type testEnv struct {
	keys   *countingKeys
	ledger *wallet.MemoryLedger
	store  *records.Store
	diag   *collectingRecorder
	ctrl   *lifecycle.Controller
}

func newEnv(t *testing.T, mutate func(*lifecycle.ControllerConfig)) *testEnv {
	t.Helper()
	root, err := keys.GenerateRootKeyProvider()
	require.NoError(t, err)
	identity, err := root.IdentityKey(context.Background())
	require.NoError(t, err)

	env := &testEnv{
		keys:   &countingKeys{Provider: root},
		ledger: wallet.NewMemoryLedger(identity),
		store:  records.NewStore(),
		diag:   &collectingRecorder{},
	}
	cfg := lifecycle.ControllerConfig{
		Keys:        env.keys,
		Submitter:   env.ledger,
		Bridge:      env.ledger,
		Store:       env.store,
		Diagnostics: env.diag,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	env.ctrl, err = lifecycle.NewController(cfg)
	require.NoError(t, err)
	return env
}

// lockedTask builds a locking script for text as another client of the same
// identity would, so it can be injected straight into the ledger.
func (e *testEnv) lockedTask(t *testing.T, ciphertext []byte) []byte {
	t.Helper()
	sb, err := bitcoin.NewScriptBuilder(e.keys.Provider, token.DefaultNamespace)
	require.NoError(t, err)
	script, err := sb.LockingScript(context.Background(), ciphertext, token.DefaultScope)
	require.NoError(t, err)
	return script
}

func (e *testEnv) encrypt(t *testing.T, text string) []byte {
	t.Helper()
	c, err := codec.New(e.keys.Provider)
	require.NoError(t, err)
	ct, err := c.Encrypt(context.Background(), text, token.DefaultScope)
	require.NoError(t, err)
	return ct
}

func texts(rs []token.TaskRecord) []string {
	var out []string
	for _, r := range rs {
		out = append(out, r.Text)
	}
	return out
}

func TestNewControllerConfig(t *testing.T) {
	root, _ := keys.GenerateRootKeyProvider()
	tests := map[string]struct {
		cfg    lifecycle.ControllerConfig
		expErr bool
	}{
		"valid": {
			cfg: lifecycle.ControllerConfig{Keys: root, Submitter: &walletmock.MockSubmitter{}, Bridge: &bridgemock.MockFetcher{}},
		},
		"missing keys": {
			cfg:    lifecycle.ControllerConfig{Submitter: &walletmock.MockSubmitter{}, Bridge: &bridgemock.MockFetcher{}},
			expErr: true,
		},
		"missing submitter": {
			cfg:    lifecycle.ControllerConfig{Keys: root, Bridge: &bridgemock.MockFetcher{}},
			expErr: true,
		},
		"missing bridge": {
			cfg:    lifecycle.ControllerConfig{Keys: root, Submitter: &walletmock.MockSubmitter{}},
			expErr: true,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := lifecycle.NewController(test.cfg)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, lifecycle.DefaultMinAmount, c.MinAmount())
		})
	}
}

func TestCreatePrependsRecord(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, nil)

	first, err := env.ctrl.Create(ctx, lifecycle.CreateRequest{Text: "Walk dog", Amount: "700"})
	require.NoError(t, err)

	rec, err := env.ctrl.Create(ctx, lifecycle.CreateRequest{Text: "Buy milk", Amount: "1000"})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", rec.Text)
	assert.Equal(t, int64(1000), rec.Amount)
	assert.Equal(t, token.StateActive, rec.State)
	assert.NotEmpty(t, rec.LockingScript)

	list := env.ctrl.List()
	require.Len(t, list, 2)
	assert.Equal(t, []string{"Buy milk", "Walk dog"}, texts(list))
	assert.Equal(t, rec.Reference, list[0].Reference)
	assert.Equal(t, first, list[1])

	// What the ledger holds matches the optimistic record byte for byte.
	identity, _ := env.keys.IdentityKey(ctx)
	owned, err := env.ledger.FetchOwned(ctx, token.DefaultNamespace, identity)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, rec.Reference, owned[1].Reference)
	assert.Equal(t, rec.LockingScript, owned[1].LockingScript)
	assert.Equal(t, rec.Amount, owned[1].Amount)

	// The locking script carries ciphertext, not the task text.
	assert.NotContains(t, string(rec.LockingScript), "Buy milk")
}

func TestCreateValidation(t *testing.T) {
	tests := map[string]struct {
		req       lifecycle.CreateRequest
		expReason token.ValidationReason
		expMsg    string
	}{
		"empty text": {
			req:       lifecycle.CreateRequest{Text: "", Amount: "1000"},
			expReason: token.EmptyTask,
			expMsg:    "Enter a task description.",
		},
		"blank text": {
			req:       lifecycle.CreateRequest{Text: "   ", Amount: "1000"},
			expReason: token.EmptyTask,
			expMsg:    "Enter a task description.",
		},
		"text too long to fit a locking script": {
			req:       lifecycle.CreateRequest{Text: strings.Repeat("a", 600), Amount: "1000"},
			expReason: token.TaskTooLong,
			expMsg:    "The task description must be at most 480 bytes.",
		},
		"text one byte over the limit": {
			req:       lifecycle.CreateRequest{Text: strings.Repeat("a", lifecycle.MaxTaskBytes+1), Amount: "1000"},
			expReason: token.TaskTooLong,
			expMsg:    "The task description must be at most 480 bytes.",
		},
		"missing amount": {
			req:       lifecycle.CreateRequest{Text: "X", Amount: ""},
			expReason: token.EmptyAmount,
			expMsg:    "Enter an amount of satoshis to lock.",
		},
		"non numeric amount": {
			req:       lifecycle.CreateRequest{Text: "X", Amount: "12abc"},
			expReason: token.EmptyAmount,
			expMsg:    "The amount must be a whole number of satoshis.",
		},
		"amount below minimum": {
			req:       lifecycle.CreateRequest{Text: "X", Amount: "400"},
			expReason: token.AmountTooLow,
			expMsg:    "The amount must be at least 500 satoshis.",
		},
		"amount just below minimum": {
			req:       lifecycle.CreateRequest{Text: "X", Amount: "499"},
			expReason: token.AmountTooLow,
			expMsg:    "The amount must be at least 500 satoshis.",
		},
		"negative amount": {
			req:       lifecycle.CreateRequest{Text: "X", Amount: "-600"},
			expReason: token.AmountTooLow,
			expMsg:    "The amount must be at least 500 satoshis.",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			submitter := &walletmock.MockSubmitter{}
			env := newEnv(t, func(c *lifecycle.ControllerConfig) { c.Submitter = submitter })

			_, err := env.ctrl.Create(context.Background(), test.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, token.ErrValidation))

			var ve *token.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, test.expReason, ve.Reason)
			assert.Equal(t, test.expMsg, lifecycle.UserMessage(err))

			// Rejected before any key use, encryption, script or submission.
			assert.Equal(t, int32(0), env.keys.derivations.Load())
			submitter.AssertNotCalled(t, "CreateAction", mock.Anything, mock.Anything)
			assert.Empty(t, env.ctrl.List())
			require.Len(t, env.diag.events, 1)
			assert.Equal(t, "validation", env.diag.events[0].Kind)
		})
	}
}

func TestCreateAtMinimumIsAccepted(t *testing.T) {
	env := newEnv(t, nil)
	rec, err := env.ctrl.Create(context.Background(), lifecycle.CreateRequest{Text: "X", Amount: " 500 "})
	require.NoError(t, err)
	assert.Equal(t, int64(500), rec.Amount)
}

func TestCreateLongestTaskFits(t *testing.T) {
	env := newEnv(t, nil)
	text := strings.Repeat("a", lifecycle.MaxTaskBytes)
	rec, err := env.ctrl.Create(context.Background(), lifecycle.CreateRequest{Text: text, Amount: "1000"})
	require.NoError(t, err)

	list, err := env.ctrl.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.Reference, list[0].Reference)
	assert.Equal(t, text, list[0].Text)
}

func TestCreateCustomMinimumMessageAgrees(t *testing.T) {
	env := newEnv(t, func(c *lifecycle.ControllerConfig) { c.MinAmount = 200 })
	_, err := env.ctrl.Create(context.Background(), lifecycle.CreateRequest{Text: "X", Amount: "199"})
	assert.Equal(t, "The amount must be at least 200 satoshis.", lifecycle.UserMessage(err))
	_, err = env.ctrl.Create(context.Background(), lifecycle.CreateRequest{Text: "X", Amount: "200"})
	assert.NoError(t, err)
}

func TestCreateSubmissionFailureLeavesStoreUntouched(t *testing.T) {
	submitter := &walletmock.MockSubmitter{}
	submitter.On("CreateAction", mock.Anything, mock.Anything).
		Return(nil, &token.SubmissionError{Message: "insufficient funds"})
	env := newEnv(t, func(c *lifecycle.ControllerConfig) { c.Submitter = submitter })

	_, err := env.ctrl.Create(context.Background(), lifecycle.CreateRequest{Text: "Buy milk", Amount: "1000"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, token.ErrSubmission))
	assert.Equal(t, "operation failed: insufficient funds", lifecycle.UserMessage(err))
	assert.Empty(t, env.ctrl.List())
	submitter.AssertExpectations(t)
}

func TestCreateDeclaresOutputForBridge(t *testing.T) {
	submitter := &walletmock.MockSubmitter{}
	var got wallet.CreateActionArgs
	submitter.On("CreateAction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(wallet.CreateActionArgs) }).
		Return(&wallet.CreateActionResult{TxID: "ab", BridgeReference: "ref-1"}, nil)
	env := newEnv(t, func(c *lifecycle.ControllerConfig) { c.Submitter = submitter })

	rec, err := env.ctrl.Create(context.Background(), lifecycle.CreateRequest{Text: "Buy milk", Amount: "1000"})
	require.NoError(t, err)

	require.Len(t, got.Outputs, 1)
	assert.Empty(t, got.Inputs)
	assert.Equal(t, int64(1000), got.Outputs[0].Satoshis)
	assert.Equal(t, rec.LockingScript, got.Outputs[0].LockingScript)
	assert.Equal(t, []string{token.DefaultNamespace.Topic()}, got.Topics)
	assert.Equal(t, token.Outpoint{TxID: "ab", Vout: 0}, rec.Reference)
}

func TestCreateIgnoresCancellationAfterDispatch(t *testing.T) {
	env := newEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The memory ledger refuses cancelled contexts, so success here means
	// the submission ran detached from the caller's cancellation.
	_, err := env.ctrl.Create(ctx, lifecycle.CreateRequest{Text: "Buy milk", Amount: "1000"})
	require.NoError(t, err)
	assert.Len(t, env.ctrl.List(), 1)
}

func TestLoadReversesAndIsolatesDecryptionFailures(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, nil)
	topic := token.DefaultNamespace.Topic()

	env.ledger.Inject(1000, env.lockedTask(t, env.encrypt(t, "rec1")), topic)
	corrupted := env.encrypt(t, "rec2")
	corrupted[len(corrupted)-1] ^= 0x01
	env.ledger.Inject(2000, env.lockedTask(t, corrupted), topic)
	env.ledger.Inject(3000, env.lockedTask(t, env.encrypt(t, "rec3")), topic)

	list, err := env.ctrl.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rec3", token.PlaceholderText, "rec1"}, texts(list))
	assert.Equal(t, []int64{3000, 2000, 1000}, []int64{list[0].Amount, list[1].Amount, list[2].Amount})
	assert.True(t, list[1].Undecryptable)
	assert.False(t, list[0].Undecryptable)
	assert.Equal(t, list, env.ctrl.List())
}

func TestLoadToleratesForeignScripts(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, nil)
	topic := token.DefaultNamespace.Topic()

	other, err := keys.GenerateRootKeyProvider()
	require.NoError(t, err)
	foreignCodec, _ := codec.New(other)
	foreignCT, _ := foreignCodec.Encrypt(ctx, "not yours", token.DefaultScope)

	env.ledger.Inject(900, env.lockedTask(t, env.encrypt(t, "mine")), topic)
	env.ledger.Inject(800, []byte{0x6a, 0x01, 0x02}, topic)
	env.ledger.Inject(700, env.lockedTask(t, foreignCT), topic)
	env.ledger.Inject(600, env.lockedTask(t, env.encrypt(t, "other topic")), "tm_other")

	list, err := env.ctrl.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{token.PlaceholderText, token.PlaceholderText, "mine"}, texts(list))
}

func TestLoadIsFullReplace(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, nil)
	require.NoError(t, env.store.Prepend(token.TaskRecord{Text: "stale", Amount: 1, Reference: token.Outpoint{TxID: "ff"}}))
	env.ledger.Inject(1000, env.lockedTask(t, env.encrypt(t, "fresh")), token.DefaultNamespace.Topic())

	list, err := env.ctrl.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, texts(list))
}

func TestLoadBridgeUnavailableKeepsStore(t *testing.T) {
	fetcher := &bridgemock.MockFetcher{}
	fetcher.On("FetchOwned", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))
	env := newEnv(t, func(c *lifecycle.ControllerConfig) { c.Bridge = fetcher })

	_, err := env.ctrl.Create(context.Background(), lifecycle.CreateRequest{Text: "keep me", Amount: "600"})
	require.NoError(t, err)

	_, err = env.ctrl.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, token.ErrBridgeUnavailable))
	assert.Contains(t, lifecycle.UserMessage(err), "operation failed:")
	assert.Equal(t, []string{"keep me"}, texts(env.ctrl.List()))
	require.Len(t, env.diag.events, 1)
	assert.Equal(t, lifecycle.OpLoad, env.diag.events[0].Op)
	assert.Equal(t, "bridge_unavailable", env.diag.events[0].Kind)
}

func TestLoadKeyUnavailable(t *testing.T) {
	env := newEnv(t, nil)
	ctrl, err := lifecycle.NewController(lifecycle.ControllerConfig{
		Keys:      brokenKeys{Provider: env.keys.Provider},
		Submitter: env.ledger,
		Bridge:    env.ledger,
	})
	require.NoError(t, err)

	_, err = ctrl.Load(context.Background())
	assert.True(t, errors.Is(err, token.ErrKeyUnavailable))
	_, err = ctrl.Identity(context.Background())
	assert.True(t, errors.Is(err, token.ErrKeyUnavailable))
}

func TestCompleteRemovesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, nil)

	var created []token.TaskRecord
	for _, text := range []string{"one", "Buy milk", "three"} {
		rec, err := env.ctrl.Create(ctx, lifecycle.CreateRequest{Text: text, Amount: "1000"})
		require.NoError(t, err)
		created = append(created, rec)
	}

	done, err := env.ctrl.Complete(ctx, created[1].Reference)
	require.NoError(t, err)
	assert.Equal(t, token.StateRedeemed, done.State)
	assert.Equal(t, "Buy milk", done.Text)

	list := env.ctrl.List()
	assert.Equal(t, []string{"three", "one"}, texts(list))
	assert.Equal(t, created[2], list[0])
	assert.Equal(t, created[0], list[1])

	// The ledger retired the output, so a reload agrees with the store.
	reloaded, err := env.ctrl.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "one"}, texts(reloaded))
}

func TestCompleteSpendsExactStoredOutput(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, nil)
	rec, err := env.ctrl.Create(ctx, lifecycle.CreateRequest{Text: "Buy milk", Amount: "1000"})
	require.NoError(t, err)

	submitter := &walletmock.MockSubmitter{}
	var got wallet.CreateActionArgs
	submitter.On("CreateAction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(wallet.CreateActionArgs) }).
		Return(&wallet.CreateActionResult{TxID: "cafe"}, nil)
	ctrl, err := lifecycle.NewController(lifecycle.ControllerConfig{
		Keys: env.keys.Provider, Submitter: submitter, Bridge: env.ledger, Store: env.store,
	})
	require.NoError(t, err)

	_, err = ctrl.Complete(ctx, rec.Reference)
	require.NoError(t, err)

	require.Len(t, got.Inputs, 1)
	assert.Empty(t, got.Outputs)
	in := got.Inputs[0]
	assert.Equal(t, rec.Reference, in.Outpoint)
	assert.Equal(t, rec.LockingScript, in.LockingScript)
	assert.Equal(t, rec.Amount, in.Satoshis)
	assert.NoError(t, bitcoin.VerifyUnlockingScript(in.LockingScript, in.UnlockingScript, in.Outpoint, in.Satoshis))
	assert.Equal(t, []string{token.DefaultNamespace.Topic()}, got.Topics)
	assert.Empty(t, env.store.Snapshot())
}

func TestCompleteUnlockFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	submitter := &walletmock.MockSubmitter{}
	env := newEnv(t, func(c *lifecycle.ControllerConfig) { c.Submitter = submitter })

	stranger, _ := btcec.NewPrivateKey()
	script, err := bitcoin.BuildLockingScript(token.DefaultNamespace, []byte("ciphertext"), stranger.PubKey())
	require.NoError(t, err)
	rec := token.TaskRecord{
		Text:          "not mine to redeem",
		Amount:        1000,
		Reference:     token.Outpoint{TxID: "0000000000000000000000000000000000000000000000000000000000000001"},
		LockingScript: script,
		State:         token.StateActive,
	}
	require.NoError(t, env.store.Prepend(rec))

	_, err = env.ctrl.Complete(ctx, rec.Reference)
	require.Error(t, err)
	assert.True(t, errors.Is(err, token.ErrUnlockFailure))
	submitter.AssertNotCalled(t, "CreateAction", mock.Anything, mock.Anything)
	assert.Equal(t, []token.TaskRecord{rec}, env.ctrl.List())
}

func TestCompleteSubmissionFailureKeepsRecordActive(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, nil)
	rec, err := env.ctrl.Create(ctx, lifecycle.CreateRequest{Text: "Buy milk", Amount: "1000"})
	require.NoError(t, err)

	submitter := &walletmock.MockSubmitter{}
	submitter.On("CreateAction", mock.Anything, mock.Anything).
		Return(nil, errors.New("broadcast rejected"))
	ctrl, err := lifecycle.NewController(lifecycle.ControllerConfig{
		Keys: env.keys.Provider, Submitter: submitter, Bridge: env.ledger, Store: env.store,
	})
	require.NoError(t, err)

	_, err = ctrl.Complete(ctx, rec.Reference)
	require.Error(t, err)
	assert.True(t, errors.Is(err, token.ErrSubmission))
	assert.Equal(t, []token.TaskRecord{rec}, env.ctrl.List())
}

func TestCompleteUnknownRecord(t *testing.T) {
	env := newEnv(t, nil)
	_, err := env.ctrl.Complete(context.Background(), token.Outpoint{TxID: "ab", Vout: 3})
	assert.True(t, errors.Is(err, token.ErrNotFound))
}

func TestCompleteRejectsConcurrentRedemption(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, nil)
	rec, err := env.ctrl.Create(ctx, lifecycle.CreateRequest{Text: "Buy milk", Amount: "1000"})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	submitter := &walletmock.MockSubmitter{}
	submitter.On("CreateAction", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&wallet.CreateActionResult{TxID: "beef"}, nil).Once()
	ctrl, err := lifecycle.NewController(lifecycle.ControllerConfig{
		Keys: env.keys.Provider, Submitter: submitter, Bridge: env.ledger, Store: env.store,
	})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := ctrl.Complete(ctx, rec.Reference)
		errc <- err
	}()
	<-entered

	pending, ok := env.store.Get(rec.Reference)
	require.True(t, ok)
	assert.Equal(t, token.StateSubmittingComplete, pending.State)

	_, err = ctrl.Complete(ctx, rec.Reference)
	assert.True(t, errors.Is(err, token.ErrInFlight))

	// A reload while the redemption is pending must not report it redeemable.
	reloaded, err := ctrl.Load(ctx)
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.Equal(t, token.StateSubmittingComplete, reloaded[0].State)
	pending, ok = env.store.Get(rec.Reference)
	require.True(t, ok)
	assert.Equal(t, token.StateSubmittingComplete, pending.State)

	close(release)
	require.NoError(t, <-errc)
	assert.Empty(t, env.store.Snapshot())
	submitter.AssertNumberOfCalls(t, "CreateAction", 1)
}

func TestIdentity(t *testing.T) {
	env := newEnv(t, nil)
	id, err := env.ctrl.Identity(context.Background())
	require.NoError(t, err)
	assert.Len(t, id, 66)
}

func TestStartResync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newEnv(t, nil)

	assert.Error(t, lifecycle.StartResync(ctx, env.ctrl, 0))
	require.NoError(t, lifecycle.StartResync(ctx, env.ctrl, 10*time.Millisecond))

	env.ledger.Inject(1000, env.lockedTask(t, env.encrypt(t, "from another device")), token.DefaultNamespace.Topic())
	assert.Eventually(t, func() bool {
		list := env.ctrl.List()
		return len(list) == 1 && list[0].Text == "from another device"
	}, 2*time.Second, 10*time.Millisecond)
}
