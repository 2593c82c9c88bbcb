package factory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-scriptform/pkg/cache"
	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/scripts"
	"github.com/goliatone/go-scriptform/pkg/storage"
)

type countingStore struct {
	inner *scripts.MemoryStore
	calls atomic.Int32
	gate  chan struct{}
}

func (s *countingStore) Parameters(ctx context.Context, script scripts.Identity) ([]scripts.Parameter, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	return s.inner.Parameters(ctx, script)
}

type recordingObserver struct {
	mu     sync.Mutex
	builds []error
}

func (o *recordingObserver) BuildCompleted(_ int64, _ time.Duration, err error) {
	o.mu.Lock()
	o.builds = append(o.builds, err)
	o.mu.Unlock()
}

var (
	inputs  = &scripts.ParameterGroup{ID: 5, Name: "Inputs"}
	tuning  = &scripts.ParameterGroup{ID: 2, Name: "Tuning"}
	outputs = &scripts.ParameterGroup{ID: 9, Name: "Outputs"}
)

func sampleScript() scripts.Script {
	return scripts.Script{ID: 42, Name: "analyse"}
}

func sampleParameters() []scripts.Parameter {
	return []scripts.Parameter{
		{ID: 1, Slug: "dataset", Title: "dataset", Kind: "FileField", Required: true, Group: inputs},
		{ID: 2, Slug: "delimiter", Title: "delimiter", Kind: "CharField", Choices: `[",",";"]`, Group: inputs},
		{ID: 3, Slug: "iterations", Title: "iterations", Kind: "IntegerField", Group: tuning},
		{ID: 4, Slug: "label", Title: "label", Kind: "CharField", Required: true, Group: outputs},
		{ID: 5, Slug: "report", Title: "report", Kind: "FileField", IsOutput: true, Group: outputs},
		{ID: 6, Slug: "seeds", Title: "seeds", Kind: "IntegerField", MultipleChoice: true, Group: tuning},
	}
}

func newTestFactory(t *testing.T, params []scripts.Parameter, options ...Option) (*Factory, *countingStore) {
	t.Helper()
	mem := scripts.NewMemoryStore()
	if err := mem.Put(sampleScript(), params...); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	store := &countingStore{inner: mem}
	f, err := New(append([]Option{WithStore(store)}, options...)...)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	return f, store
}

func groupNames(groups model.GroupForms) []string {
	var out []string
	for _, group := range groups.Groups() {
		out = append(out, group.Name)
	}
	return out
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected error without parameter store")
	}
}

func TestMasterForm_HasIdentityFirstAndEveryParameter(t *testing.T) {
	params := sampleParameters()
	f, _ := newTestFactory(t, params)

	master, err := f.MasterForm(context.Background(), sampleScript())
	if err != nil {
		t.Fatalf("master form: %v", err)
	}
	if master.Len() != len(params)+1 {
		t.Fatalf("expected %d fields, got %d", len(params)+1, master.Len())
	}

	want := []string{model.IdentityFieldName, "dataset", "delimiter", "iterations", "label", "report", "seeds"}
	if diff := cmp.Diff(want, master.Names()); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if pk, ok := master.ScriptID(); !ok || pk != 42 {
		t.Fatalf("identity field should carry the primary key, got %d", pk)
	}
	identity, _ := master.Field(model.IdentityFieldName)
	if identity.Kind() != model.KindHidden {
		t.Fatalf("identity field must be hidden, got %s", identity.Kind())
	}
}

func TestGroupForms_PartitionAndOrder(t *testing.T) {
	f, _ := newTestFactory(t, sampleParameters())
	ctx := context.Background()

	groups, err := f.GroupForms(ctx, sampleScript(), nil)
	if err != nil {
		t.Fatalf("group forms: %v", err)
	}
	if groups.Action() != "/scripts/42/submissions" {
		t.Fatalf("unexpected action %q", groups.Action())
	}
	if diff := cmp.Diff([]string{"Required", "Tuning", "Inputs", "Outputs"}, groupNames(groups)); diff != "" {
		t.Fatalf("group order mismatch (-want +got):\n%s", diff)
	}

	wantFields := [][]string{
		{model.IdentityFieldName, "dataset", "label"},
		{"iterations", "seeds"},
		{"delimiter"},
		{"report"},
	}
	for idx, group := range groups.Groups() {
		if diff := cmp.Diff(wantFields[idx], group.Form.Names()); diff != "" {
			t.Fatalf("group %q fields mismatch (-want +got):\n%s", group.Name, diff)
		}
	}
}

func TestGroupForms_UnionMatchesMasterWithoutIdentity(t *testing.T) {
	f, _ := newTestFactory(t, sampleParameters())
	ctx := context.Background()

	groups, err := f.GroupForms(ctx, sampleScript(), nil)
	if err != nil {
		t.Fatalf("group forms: %v", err)
	}
	master, err := f.MasterForm(ctx, sampleScript())
	if err != nil {
		t.Fatalf("master form: %v", err)
	}

	seen := make(map[string]int)
	for _, group := range groups.Groups() {
		for field := range group.Form.All() {
			if field.Name() == model.IdentityFieldName {
				continue
			}
			seen[field.Name()]++
		}
	}
	var union []string
	for name, count := range seen {
		if count != 1 {
			t.Fatalf("field %q appears in %d groups", name, count)
		}
		union = append(union, name)
	}
	var masterNames []string
	for _, name := range master.Names() {
		if name != model.IdentityFieldName {
			masterNames = append(masterNames, name)
		}
	}
	sort.Strings(union)
	sort.Strings(masterNames)
	if diff := cmp.Diff(masterNames, union); diff != "" {
		t.Fatalf("group union mismatch (-master +groups):\n%s", diff)
	}
}

func TestRequiredGroupFirstRegardlessOfGroupIDs(t *testing.T) {
	params := []scripts.Parameter{
		{ID: 1, Slug: "low", Title: "low", Kind: "text", Group: &scripts.ParameterGroup{ID: 1, Name: "Low"}},
		{ID: 2, Slug: "must", Title: "must", Kind: "text", Required: true, Group: &scripts.ParameterGroup{ID: 1, Name: "Low"}},
	}
	f, _ := newTestFactory(t, params)

	groups, err := f.GroupForms(context.Background(), sampleScript(), nil)
	if err != nil {
		t.Fatalf("group forms: %v", err)
	}
	if diff := cmp.Diff([]string{"Required", "Low"}, groupNames(groups)); diff != "" {
		t.Fatalf("group order mismatch (-want +got):\n%s", diff)
	}
	if _, ok := groups.Group(1).Form.Field(model.IdentityFieldName); ok {
		t.Fatalf("only the first group carries the identity field")
	}
}

func TestFirstCallPopulatesBothSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("group forms first", func(t *testing.T) {
		c := cache.New()
		f, store := newTestFactory(t, sampleParameters(), WithCache(c))
		if _, err := f.GroupForms(ctx, sampleScript(), nil); err != nil {
			t.Fatalf("group forms: %v", err)
		}
		entry, ok := c.Get(42)
		if !ok || entry.Master.Len() != 7 || entry.Groups.Len() != 4 {
			t.Fatalf("expected both slots cached, got ok=%v master=%d groups=%d", ok, entry.Master.Len(), entry.Groups.Len())
		}
		if _, err := f.MasterForm(ctx, sampleScript()); err != nil {
			t.Fatalf("master form: %v", err)
		}
		if store.calls.Load() != 1 {
			t.Fatalf("expected a single parameter query, got %d", store.calls.Load())
		}
	})

	t.Run("master form first", func(t *testing.T) {
		c := cache.New()
		f, store := newTestFactory(t, sampleParameters(), WithCache(c))
		if _, err := f.MasterForm(ctx, sampleScript()); err != nil {
			t.Fatalf("master form: %v", err)
		}
		entry, ok := c.Get(42)
		if !ok || entry.Groups.Len() != 4 {
			t.Fatalf("expected group slot cached after master build")
		}
		if _, err := f.GroupForms(ctx, sampleScript(), nil); err != nil {
			t.Fatalf("group forms: %v", err)
		}
		if store.calls.Load() != 1 {
			t.Fatalf("expected a single parameter query, got %d", store.calls.Load())
		}
	})
}

func TestCachedResultsCannotBeMutatedByCallers(t *testing.T) {
	f, _ := newTestFactory(t, sampleParameters())
	ctx := context.Background()

	first, err := f.GroupForms(ctx, sampleScript(), nil)
	if err != nil {
		t.Fatalf("group forms: %v", err)
	}
	second, err := f.GroupForms(ctx, sampleScript(), nil)
	if err != nil {
		t.Fatalf("group forms: %v", err)
	}

	groups := second.Groups()
	groups[0] = model.GroupForm{Name: "hijacked"}
	fields := groups[1].Form.Fields()
	fields[0] = model.IdentityField(1)
	field, _ := groups[2].Form.Field("delimiter")
	choices := field.Choices()
	choices[1].Label = "mutated"

	master, _ := f.MasterForm(ctx, sampleScript())
	masterFields := master.Fields()
	masterFields[0] = model.IdentityField(7)

	third, err := f.GroupForms(ctx, sampleScript(), nil)
	if err != nil {
		t.Fatalf("group forms: %v", err)
	}
	if diff := cmp.Diff(groupNames(first), groupNames(third)); diff != "" {
		t.Fatalf("group names changed (-first +third):\n%s", diff)
	}
	if third.Group(1).Form.Names()[0] != "iterations" {
		t.Fatalf("group fields changed through returned slice")
	}
	delimiter, _ := third.Group(2).Form.Field("delimiter")
	if delimiter.Choices()[1].Label != "," {
		t.Fatalf("choices changed through returned slice: %+v", delimiter.Choices())
	}
	again, _ := f.MasterForm(ctx, sampleScript())
	if pk, _ := again.ScriptID(); pk != 42 {
		t.Fatalf("master identity changed through returned slice: %d", pk)
	}
}

func TestGroupForms_InitialValuesAreNotCached(t *testing.T) {
	resolver := storage.ResolverFunc(func(_ context.Context, id string) (storage.File, error) {
		return storage.NewObject(id, "/files/"+id), nil
	})
	f, store := newTestFactory(t, sampleParameters(), WithResolver(resolver))
	ctx := context.Background()

	seeded, err := f.GroupForms(ctx, sampleScript(), map[string]any{
		"dataset":    "uploads/data.csv",
		"iterations": 10,
		"report":     "reports/old.txt",
	})
	if err != nil {
		t.Fatalf("group forms with initial: %v", err)
	}

	dataset, _ := seeded.Group(0).Form.Field("dataset")
	initial, ok := dataset.Initial()
	file, isFile := initial.(storage.File)
	if !ok || !isFile || file.Path() != "/files/uploads/data.csv" {
		t.Fatalf("expected resolved file initial, got %#v", initial)
	}
	if dataset.Widget().Name() != model.WidgetClearableFile {
		t.Fatalf("expected clearable widget, got %s", dataset.Widget().Name())
	}
	iterations, _ := seeded.Group(1).Form.Field("iterations")
	if value, _ := iterations.Initial(); value != 10 {
		t.Fatalf("expected iterations initial 10, got %v", value)
	}
	report, _ := seeded.Group(3).Form.Field("report")
	if report.Kind() != model.KindText {
		t.Fatalf("output file should be text, got %s", report.Kind())
	}
	if _, ok := report.Initial(); ok {
		t.Fatalf("output file must not carry an initial value")
	}

	plain, err := f.GroupForms(ctx, sampleScript(), nil)
	if err != nil {
		t.Fatalf("group forms: %v", err)
	}
	cached, _ := plain.Group(0).Form.Field("dataset")
	if _, ok := cached.Initial(); ok {
		t.Fatalf("initial values leaked into the cache")
	}
	if store.calls.Load() != 2 {
		t.Fatalf("expected canonical build plus one seeded query, got %d", store.calls.Load())
	}
}

func TestInvalidateForcesRebuild(t *testing.T) {
	mem := scripts.NewMemoryStore()
	if err := mem.Put(sampleScript(), sampleParameters()...); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f, err := New(WithStore(mem))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	ctx := context.Background()

	before, err := f.MasterForm(ctx, sampleScript())
	if err != nil {
		t.Fatalf("master form: %v", err)
	}

	updated := append(sampleParameters(), scripts.Parameter{ID: 7, Slug: "extra", Title: "extra", Kind: "text", Required: true})
	if err := mem.Put(sampleScript(), updated...); err != nil {
		t.Fatalf("update: %v", err)
	}

	stale, _ := f.MasterForm(ctx, sampleScript())
	if stale.Len() != before.Len() {
		t.Fatalf("expected cached form until invalidation")
	}

	if !f.Invalidate(42) {
		t.Fatalf("expected invalidate to remove the entry")
	}
	fresh, err := f.MasterForm(ctx, sampleScript())
	if err != nil {
		t.Fatalf("master form: %v", err)
	}
	if fresh.Len() != before.Len()+1 {
		t.Fatalf("expected rebuilt form with extra field, got %d fields", fresh.Len())
	}

	if removed := f.InvalidateAll(); removed != 1 {
		t.Fatalf("expected one purged entry, got %d", removed)
	}
}

func TestBuildErrorsPropagateAndAreNotCached(t *testing.T) {
	cases := []struct {
		name  string
		param scripts.Parameter
		want  error
	}{
		{"unknown kind", scripts.Parameter{ID: 1, Slug: "x", Kind: "ImageField", Required: true}, model.ErrUnknownFieldKind},
		{"bad choices", scripts.Parameter{ID: 1, Slug: "x", Kind: "text", Required: true, Choices: "[1,"}, scripts.ErrInvalidChoices},
		{"missing group", scripts.Parameter{ID: 1, Slug: "x", Kind: "text"}, scripts.ErrMissingGroup},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := cache.New()
			observer := &recordingObserver{}
			f, _ := newTestFactory(t, []scripts.Parameter{tc.param}, WithCache(c), WithBuildObserver(observer))

			if _, err := f.MasterForm(context.Background(), sampleScript()); !errors.Is(err, tc.want) {
				t.Fatalf("master form: expected %v, got %v", tc.want, err)
			}
			if _, err := f.GroupForms(context.Background(), sampleScript(), nil); !errors.Is(err, tc.want) {
				t.Fatalf("group forms: expected %v, got %v", tc.want, err)
			}
			if c.Len() != 0 {
				t.Fatalf("failed builds must not be cached")
			}
			if len(observer.builds) != 2 || observer.builds[0] == nil {
				t.Fatalf("expected two failed build notifications, got %v", observer.builds)
			}
		})
	}
}

func TestEnsure_CollapsesConcurrentBuilds(t *testing.T) {
	gate := make(chan struct{})
	mem := scripts.NewMemoryStore()
	if err := mem.Put(sampleScript(), sampleParameters()...); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := &countingStore{inner: mem, gate: gate}
	f, err := New(WithStore(store))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Ensure(context.Background(), sampleScript())
			errs <- err
		}()
	}

	deadline := time.After(2 * time.Second)
	for store.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("build never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("expected concurrent callers to share one build, got %d queries", got)
	}
}

func TestEnsure_HonoursCancelledContext(t *testing.T) {
	f, store := newTestFactory(t, sampleParameters())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Ensure(ctx, sampleScript()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.calls.Load() != 0 {
		t.Fatalf("cancelled calls should not query the store")
	}
	if _, err := f.Ensure(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil script")
	}
}

func TestEnsure_EmptyScript(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	entry, err := f.Ensure(context.Background(), sampleScript())
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if entry.Master.Len() != 1 || entry.Groups.Len() != 0 {
		t.Fatalf("expected identity-only master and no groups, got %d/%d", entry.Master.Len(), entry.Groups.Len())
	}
}

// snapshotStore reads the parameters before blocking on gate, so a build can
// hold data that changes underneath it.
type snapshotStore struct {
	inner   *scripts.MemoryStore
	started chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (s *snapshotStore) Parameters(ctx context.Context, script scripts.Identity) ([]scripts.Parameter, error) {
	params, err := s.inner.Parameters(ctx, script)
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.started)
		<-s.gate
	}
	return params, err
}

func TestInvalidateDuringBuildDiscardsStaleEntry(t *testing.T) {
	mem := scripts.NewMemoryStore()
	if err := mem.Put(sampleScript(), sampleParameters()...); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := &snapshotStore{inner: mem, started: make(chan struct{}), gate: make(chan struct{})}
	c := cache.New()
	f, err := New(WithStore(store), WithCache(c))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.MasterForm(ctx, sampleScript())
		done <- err
	}()

	select {
	case <-store.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("build never started")
	}

	if err := mem.Put(sampleScript(), sampleParameters()[:1]...); err != nil {
		t.Fatalf("update: %v", err)
	}
	f.Invalidate(42)

	// Callers arriving after the invalidation do not join the blocked build.
	fresh, err := f.MasterForm(ctx, sampleScript())
	if err != nil {
		t.Fatalf("master form: %v", err)
	}
	if fresh.Len() != 2 {
		t.Fatalf("expected identity plus one parameter, got %d fields", fresh.Len())
	}

	close(store.gate)
	if err := <-done; err != nil {
		t.Fatalf("in-flight master form: %v", err)
	}

	cached, err := f.MasterForm(ctx, sampleScript())
	if err != nil {
		t.Fatalf("master form: %v", err)
	}
	if cached.Len() != 2 {
		t.Fatalf("stale build replaced the fresh entry: %d fields", cached.Len())
	}
}

func TestInvalidateAllDuringBuildDiscardsStaleEntry(t *testing.T) {
	mem := scripts.NewMemoryStore()
	if err := mem.Put(sampleScript(), sampleParameters()...); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := &snapshotStore{inner: mem, started: make(chan struct{}), gate: make(chan struct{})}
	c := cache.New()
	f, err := New(WithStore(store), WithCache(c))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.Ensure(context.Background(), sampleScript())
		done <- err
	}()
	<-store.started

	f.InvalidateAll()
	close(store.gate)
	if err := <-done; err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected purged build to stay out of the cache, got keys %v", c.Keys())
	}
}

func TestEnsure_CancelledCallerDoesNotFailSharedBuild(t *testing.T) {
	gate := make(chan struct{})
	mem := scripts.NewMemoryStore()
	if err := mem.Put(sampleScript(), sampleParameters()...); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := &countingStore{inner: mem, gate: gate}
	f, err := New(WithStore(store))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := f.Ensure(ctx, sampleScript())
		first <- err
	}()
	for store.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	second := make(chan error, 1)
	go func() {
		_, err := f.Ensure(context.Background(), sampleScript())
		second <- err
	}()

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to return context.Canceled, got %v", err)
	}

	close(gate)
	if err := <-second; err != nil {
		t.Fatalf("waiting caller failed: %v", err)
	}
	if store.calls.Load() != 1 {
		t.Fatalf("expected one shared build, got %d queries", store.calls.Load())
	}
}
