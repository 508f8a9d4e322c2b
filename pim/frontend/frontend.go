package frontend

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pimsim/pimsim/pim"
)

// Frontend drives the Trace Expander lifecycle of §4.5: Load, Connect,
// Expand, derive-live-weight-map, Synthesize/Stream, Finalize. It is the
// single agent that writes to the DRAM back-end and the conflict tracker,
// per the ownership rules of §5.
type Frontend struct {
	cfg Config

	backend pim.DRAMBackend
	codegen pim.KernelCodegen
	policy  pim.KVCachePolicy
	org     pim.Organization

	trace     *LoadedTrace
	flat      []pim.Operation // pre-scanned, flattened kernel-op buffer
	truncated bool

	staticMapEmpty bool // true if the file-based static weight map came back empty

	tracker *pim.ConflictTracker
	gen     *pim.KVTraceGenerator

	// stream state
	cursor      int // next op index to offer, over the synthesized stream
	stream      []pim.Operation
	streamBuilt bool
}

// New constructs an unconnected Frontend. Call Load then Connect before
// Expand/Synthesize/Stream.
func New(cfg Config) *Frontend {
	return &Frontend{cfg: cfg.WithDefaults(), tracker: pim.NewConflictTracker()}
}

// Load implements §4.5 step 1: parse the upstream trace named in
// Config.Path. A ConfigurationError here is fatal.
func (f *Frontend) Load() error {
	if err := f.cfg.Validate(); err != nil {
		return err
	}
	logrus.Infof("pim: loading trace %q", f.cfg.Path)
	lt, err := LoadTrace(f.cfg.Path)
	if err != nil {
		return err
	}
	f.trace = lt
	logrus.Infof("pim: loaded %d ops, %d kernel blocks", len(lt.Ops), len(lt.Kernels))
	return nil
}

// Connect implements §4.5 step 2: attach the DRAM back-end and kernel
// codegen, derive N from the back-end's organization, load the static
// weight map, and initialize the configured policy.
func (f *Frontend) Connect(backend pim.DRAMBackend, codegen pim.KernelCodegen) error {
	f.backend = backend
	f.codegen = codegen

	org, err := pim.OrganizationFromBackend(backend)
	if err != nil {
		return err
	}
	f.org = org
	numBanks := org.NumBanks()
	logrus.Infof("pim: connected, N=%d banks (organization %+v)", numBanks, org)

	staticMap, err := pim.LoadStaticWeightMap(f.cfg.StaticWeightTracePath, numBanks)
	if err != nil {
		return err
	}
	f.staticMapEmpty = len(staticMap) == 0

	policy, err := pim.NewKVCachePolicy(f.cfg.KVCachePolicyImpl, f.cfg.PolicyParams)
	if err != nil {
		return err
	}
	if err := policy.Init(backend, numBanks, staticMap); err != nil {
		return err
	}
	f.policy = policy
	f.gen = pim.NewKVTraceGenerator(policy, org, f.cfg.RowGranuleBytes, f.cfg.KVDataSizeConfig)

	logrus.Infof("pim: policy %q initialized", policy.Name())
	return nil
}

// Expand implements §4.5 step 3: pre-scan the loaded trace, invoking the
// external codegen once per kernel op and appending its output to a flat
// buffer, capped at Config.MaxFlatKernelOps (OverflowGuard, §7).
func (f *Frontend) Expand() error {
	if f.trace == nil {
		return &pim.ConfigurationError{Msg: "Expand called before Load"}
	}
	maxOps := f.cfg.MaxFlatKernelOps

	for _, op := range f.trace.Ops {
		if op.Opcode != pim.OpKernel {
			f.flat = append(f.flat, op)
			continue
		}
		idx := op.Addr.Bank
		if idx < 0 || idx >= len(f.trace.Kernels) {
			logrus.Warnf("pim: kernel op references out-of-range descriptor %d, skipping", idx)
			continue
		}
		if err := f.codegen.CodegenKernel(f.trace.Kernels[idx], &f.flat); err != nil {
			return fmt.Errorf("codegen kernel %d: %w", idx, err)
		}
		if len(f.flat) > maxOps {
			logrus.Warnf("pim: flat kernel buffer exceeded %d ops, truncating", maxOps)
			f.flat = f.flat[:maxOps]
			f.truncated = true
			break
		}
	}
	logrus.Infof("pim: expanded %d flat kernel-ops (truncated=%v)", len(f.flat), f.truncated)
	return nil
}

// DeriveLiveWeightMap implements §4.5 step 4 and the §4.6 fallback: only
// if the file-based static weight map came back empty, substitute one
// derived from the writes observed during expansion, and push it into
// the policy via SetStaticWeightMapping. A non-empty file-based map is
// left untouched — the fallback exists for EmptyMap runs, not to augment
// a real static-weight-trace_path.
func (f *Frontend) DeriveLiveWeightMap() {
	if !f.staticMapEmpty {
		return
	}
	live := pim.DeriveLiveWeightMap(f.flat, f.org, f.cfg.LiveMapPadPerBank)
	if len(live) == 0 {
		return
	}
	logrus.Infof("pim: derived live weight map covering %d banks, pushing to policy", len(live))
	f.policy.SetStaticWeightMapping(live)
}

// Synthesize implements §4.5 step 5: build the interleaved per-token
// stream. With NumTokens == 0 or EnableKVCache == false, the stream is
// just the flat kernel buffer, streamed once (§8: "with num_tokens = 0,
// the emitted stream contains only the kernel portion of the original
// trace and no KV ops"). With KernelSliceOpsPerToken == 0, the stream is
// exactly the KV ops produced by the generator, in per-token order (§8).
func (f *Frontend) Synthesize() error {
	if f.streamBuilt {
		return nil
	}
	if !f.cfg.EnableKVCache || f.cfg.NumTokens == 0 {
		f.stream = append(f.stream, f.flat...)
		f.streamBuilt = true
		return nil
	}

	sliceLen := f.cfg.KernelSliceOpsPerToken
	blockLen := len(f.flat)
	for t := 0; t < f.cfg.NumTokens; t++ {
		kvOps, err := f.gen.Generate(t, f.cfg.KVDataSizeConfig.KVDataSize(), int64(t*f.cfg.ClockRatio))
		if err != nil {
			return fmt.Errorf("generate KV ops for token %d: %w", t, err)
		}
		f.stream = append(f.stream, kvOps...)

		if sliceLen == 0 || blockLen == 0 {
			continue
		}
		offset := (t * sliceLen) % blockLen
		for i := 0; i < sliceLen; i++ {
			f.stream = append(f.stream, f.flat[(offset+i)%blockLen])
		}
	}
	f.streamBuilt = true
	return nil
}

// Stream implements §4.5 step 6: push one operation per call to the
// back-end, classifying it through the conflict tracker as it goes.
// Returns (done, error): done is true once the cursor has exhausted the
// stream and the back-end reports idle.
func (f *Frontend) Stream() (bool, error) {
	if !f.streamBuilt {
		if err := f.Synthesize(); err != nil {
			return false, err
		}
	}
	if f.cursor < len(f.stream) {
		op := f.stream[f.cursor]
		if f.backend.Send(op) {
			f.observe(op)
			f.cursor++
		}
		// BackpressureRefusal (§7): leave the cursor in place, retry next tick.
	}
	return f.cursor >= len(f.stream) && f.backend.Finished(), nil
}

// observe classifies op as weight-class (originates from the flat kernel
// buffer, TokenID < 0) or KV-class (TokenID >= 0) and registers it with
// the conflict tracker, per §4.4.
func (f *Frontend) observe(op pim.Operation) {
	bank := pim.ProjectBankIndex(op.Addr, f.org)
	addr := fmt.Sprintf("%d:%d:%d", op.Addr.Row, op.Addr.Column, op.Cycle)
	if op.TokenID >= 0 {
		f.tracker.RegisterKVOperation(bank, addr, op.Cycle)
	} else {
		f.tracker.RegisterWeightOperation(bank, addr, op.Cycle)
	}
}

// Run calls Stream until it reports done, for callers that don't need
// fine-grained tick control. It does not drain the back-end, so it
// returns only with a back-end that empties its own queue; the CLI and
// the tests call Stream and MemoryBackend.DrainOne themselves.
func (f *Frontend) Run() error {
	for {
		done, err := f.Stream()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Policy returns the configured KVCachePolicy, for Finalize and tests.
func (f *Frontend) Policy() pim.KVCachePolicy { return f.policy }

// Tracker returns the conflict tracker, for Finalize and tests.
func (f *Frontend) Tracker() *pim.ConflictTracker { return f.tracker }
