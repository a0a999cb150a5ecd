package rings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// Store is the CRUD surface over a document's ring container.
//
// Reads migrate legacy documents first. Writes replace the whole container
// under the rings key and fire the change signal once the write succeeded.
// There is no locking across the read and write halves of an update: two
// writers racing on one document lose one of their changes.
type Store struct {
	logger *slog.Logger
	signal *Signal
	engine *Engine
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSignal sets the change signal. The default is DefaultSignal.
func WithSignal(signal *Signal) Option {
	return func(s *Store) { s.signal = signal }
}

// NewStore returns a Store with its own migration engine.
func NewStore(opts ...Option) *Store {
	s := &Store{
		logger: slog.Default(),
		signal: DefaultSignal,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.signal == nil {
		s.signal = DefaultSignal
	}
	s.engine = NewEngine(s.logger, s.signal)
	return s
}

// Signal returns the signal fired after every mutation.
func (s *Store) Signal() *Signal {
	return s.signal
}

// Engine returns the migration engine used by the store.
func (s *Store) Engine() *Engine {
	return s.engine
}

// writeOptions collects per-call write settings.
type writeOptions struct {
	direct bool
}

// WriteOption configures a single Set call.
type WriteOption func(*writeOptions)

// WithDirect writes without unsetting the rings key first. The host merges
// the new container into the stored one, so it is only safe when no ring is
// being removed. Editors use it for previews to avoid a double refresh.
func WithDirect() WriteOption {
	return func(o *writeOptions) { o.direct = true }
}

// Blank returns an unsaved ring with default settings and no id.
func (s *Store) Blank() types.Ring {
	return types.DefaultRing()
}

// ListAll returns every ring of the document, migrating it first if needed.
// A document without rings yields an empty container. Records that fail
// validation are logged and left out.
func (s *Store) ListAll(ctx context.Context, doc types.Document) (types.Container, error) {
	return s.current(ctx, doc)
}

// Get returns the first ring, in ascending id order, whose field loosely
// equals term. Returns ErrNotFound if no ring matches.
func (s *Store) Get(ctx context.Context, doc types.Document, term any, field types.Field) (types.Ring, error) {
	if field == "" {
		field = types.FieldID
	}
	if _, err := types.ParseField(string(field)); err != nil {
		return types.Ring{}, err
	}
	c, err := s.current(ctx, doc)
	if err != nil {
		return types.Ring{}, err
	}
	for _, r := range c.Rings() {
		if r.Matches(field, term) {
			return r, nil
		}
	}
	return types.Ring{}, fmt.Errorf("%w: %s = %v", types.ErrNotFound, field, term)
}

// Index returns ring names keyed by id. It reads the stored container as is,
// without migrating, and returns ErrShape when it is not an id-keyed mapping.
func (s *Store) Index(ctx context.Context, doc types.Document) (map[int]string, error) {
	value, ok, err := doc.GetFlag(ctx, types.Namespace, types.RingsKey)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", types.RingsKey, err)
	}
	index := make(map[int]string)
	switch shape := shapeOf(value, ok); shape {
	case shapeAbsent:
		return index, nil
	case shapeMap:
		c := s.validated(doc, value.(map[string]any))
		for _, r := range c {
			index[r.ID] = r.Name
		}
		return index, nil
	default:
		return nil, fmt.Errorf("%w: %s holds %s value", types.ErrShape, types.RingsKey, shape)
	}
}

// Create stores a new default ring under the next free id and returns it.
func (s *Store) Create(ctx context.Context, doc types.Document) (types.Ring, error) {
	if err := authorize(doc); err != nil {
		return types.Ring{}, err
	}
	c, err := s.current(ctx, doc)
	if err != nil {
		return types.Ring{}, err
	}
	id, err := NextAvailableIDIn(c)
	if err != nil {
		return types.Ring{}, err
	}
	r := types.DefaultRing()
	r.ID = id
	c.Put(r)
	if err := s.persist(ctx, doc, c, false); err != nil {
		return types.Ring{}, err
	}
	return r, nil
}

// Set adds or replaces a ring. An unassigned ring receives the next free id;
// a ring with an existing id overwrites the stored one. The stored ring,
// with its id, is returned.
func (s *Store) Set(ctx context.Context, doc types.Document, ring types.Ring, opts ...WriteOption) (types.Ring, error) {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := authorize(doc); err != nil {
		return types.Ring{}, err
	}
	if err := ring.Validate(); err != nil {
		return types.Ring{}, err
	}
	c, err := s.current(ctx, doc)
	if err != nil {
		return types.Ring{}, err
	}
	if !ring.Assigned() {
		id, err := NextAvailableIDIn(c)
		if err != nil {
			return types.Ring{}, err
		}
		ring.ID = id
	}
	c.Put(ring)
	if err := s.persist(ctx, doc, c, o.direct); err != nil {
		return types.Ring{}, err
	}
	return ring, nil
}

// SetAll replaces every ring of the document. Rings are re-keyed by their id;
// unassigned rings receive free ids after all assigned ones are placed.
// Two rings sharing an id fail with ErrDuplicateID and nothing is written.
func (s *Store) SetAll(ctx context.Context, doc types.Document, rings types.Container) error {
	if err := authorize(doc); err != nil {
		return err
	}
	out := make(types.Container, len(rings))
	var unassigned []types.Ring
	for _, r := range rings.Rings() {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("ring %q: %w", r.Name, err)
		}
		if !r.Assigned() {
			unassigned = append(unassigned, r)
			continue
		}
		if _, dup := out.Lookup(r.ID); dup {
			return fmt.Errorf("%w: %d", types.ErrDuplicateID, r.ID)
		}
		out.Put(r)
	}
	for _, r := range unassigned {
		id, err := NextAvailableIDIn(out)
		if err != nil {
			return err
		}
		r.ID = id
		out.Put(r)
	}

	// Migrate first so leftover legacy flags cannot be folded in later.
	if _, err := s.current(ctx, doc); err != nil {
		return err
	}
	return s.persist(ctx, doc, out, false)
}

// SetValue changes a single field of the ring with the given id.
// Returns ErrNotFound if there is no such ring.
func (s *Store) SetValue(ctx context.Context, doc types.Document, id int, field types.Field, value any) error {
	_, err := s.update(ctx, doc, id, func(r *types.Ring) error {
		return r.SetField(field, value)
	})
	return err
}

// Rename changes the display name of a ring.
func (s *Store) Rename(ctx context.Context, doc types.Document, id int, name string) error {
	return s.SetValue(ctx, doc, id, types.FieldName, name)
}

// ToggleHide flips the hide flag of a ring and returns the new value.
func (s *Store) ToggleHide(ctx context.Context, doc types.Document, id int) (bool, error) {
	r, err := s.update(ctx, doc, id, func(r *types.Ring) error {
		r.Hide = !r.Hide
		return nil
	})
	return r.Hide, err
}

// Duplicate stores a copy of a ring under the next free id, named
// "Copy of <name>", and returns the copy.
func (s *Store) Duplicate(ctx context.Context, doc types.Document, id int) (types.Ring, error) {
	if err := authorize(doc); err != nil {
		return types.Ring{}, err
	}
	c, err := s.current(ctx, doc)
	if err != nil {
		return types.Ring{}, err
	}
	src, ok := c.Lookup(id)
	if !ok {
		return types.Ring{}, fmt.Errorf("%w: id %d", types.ErrNotFound, id)
	}
	clone := src
	clone.ID, err = NextAvailableIDIn(c)
	if err != nil {
		return types.Ring{}, err
	}
	clone.Name = "Copy of " + src.Name
	c.Put(clone)
	if err := s.persist(ctx, doc, c, false); err != nil {
		return types.Ring{}, err
	}
	return clone, nil
}

// Delete removes the ring with the given id. Deleting a missing ring is a
// no-op that writes nothing.
func (s *Store) Delete(ctx context.Context, doc types.Document, id int) error {
	if err := authorize(doc); err != nil {
		return err
	}
	c, err := s.current(ctx, doc)
	if err != nil {
		return err
	}
	if !c.Remove(id) {
		return nil
	}
	return s.persist(ctx, doc, c, false)
}

// DeleteAll removes every ring of the document.
func (s *Store) DeleteAll(ctx context.Context, doc types.Document) error {
	if err := authorize(doc); err != nil {
		return err
	}
	if _, err := s.current(ctx, doc); err != nil {
		return err
	}
	return s.persist(ctx, doc, types.Container{}, false)
}

// Migrate runs the migration engine on doc and reports whether it wrote.
func (s *Store) Migrate(ctx context.Context, doc types.Document) (bool, error) {
	needed, err := s.engine.NeedsMigration(doc)
	if err != nil || !needed {
		return false, err
	}
	if err := authorize(doc); err != nil {
		return false, err
	}
	return s.engine.Migrate(ctx, doc)
}

// update applies fn to one stored ring and persists the result.
func (s *Store) update(ctx context.Context, doc types.Document, id int, fn func(r *types.Ring) error) (types.Ring, error) {
	if err := authorize(doc); err != nil {
		return types.Ring{}, err
	}
	c, err := s.current(ctx, doc)
	if err != nil {
		return types.Ring{}, err
	}
	r, ok := c.Lookup(id)
	if !ok {
		return types.Ring{}, fmt.Errorf("%w: id %d", types.ErrNotFound, id)
	}
	if err := fn(&r); err != nil {
		return types.Ring{}, err
	}
	if err := r.Validate(); err != nil {
		return types.Ring{}, err
	}
	c.Put(r)
	if err := s.persist(ctx, doc, c, false); err != nil {
		return types.Ring{}, err
	}
	return r, nil
}

// current returns the migrated container of doc. Owners migrate the stored
// flags; other callers see the migrated result without anything written.
func (s *Store) current(ctx context.Context, doc types.Document) (types.Container, error) {
	needed, err := s.engine.NeedsMigration(doc)
	if err != nil {
		return nil, err
	}
	if needed {
		if !doc.IsOwner() {
			preview, err := s.engine.Preview(doc)
			if err != nil {
				return nil, err
			}
			return s.dropInvalid(doc, preview), nil
		}
		if _, err := s.engine.Migrate(ctx, doc); err != nil {
			return nil, err
		}
	}

	value, ok, err := doc.GetFlag(ctx, types.Namespace, types.RingsKey)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", types.RingsKey, err)
	}
	switch shape := shapeOf(value, ok); shape {
	case shapeAbsent:
		return types.Container{}, nil
	case shapeMap:
		return s.validated(doc, value.(map[string]any)), nil
	default:
		return nil, fmt.Errorf("%w: %s holds %s value after migration", types.ErrShape, types.RingsKey, shape)
	}
}

// validated decodes a stored mapping, logging and leaving out every record
// that does not decode or validate.
func (s *Store) validated(doc types.Document, m map[string]any) types.Container {
	c, dropped := decodeContainer(m)
	logDropped(s.logger.With("document", doc.ID()), dropped)
	return s.dropInvalid(doc, c)
}

func (s *Store) dropInvalid(doc types.Document, c types.Container) types.Container {
	for key, r := range c {
		if err := r.Validate(); err != nil {
			s.logger.Warn("dropping malformed ring", "document", doc.ID(), "key", key, "error", err)
			delete(c, key)
		}
	}
	return c
}

// persist writes the whole container, tags the document with the current
// version if it has none, and fires the change signal.
func (s *Store) persist(ctx context.Context, doc types.Document, c types.Container, direct bool) error {
	value, err := encodeContainer(c)
	if err != nil {
		return err
	}
	if err := writeRings(ctx, doc, value, direct); err != nil {
		return fmt.Errorf("writing rings of %s: %w", doc.ID(), err)
	}
	if _, tagged := lookupFlag(doc.Flags(types.Namespace), types.VersionKey); !tagged {
		if err := doc.SetFlag(ctx, types.Namespace, types.VersionKey, types.CurrentVersion); err != nil {
			return fmt.Errorf("setting %s of %s: %w", types.VersionKey, doc.ID(), err)
		}
	}
	s.signal.Fire()
	return nil
}

func authorize(doc types.Document) error {
	if !doc.IsOwner() {
		return fmt.Errorf("%w: %s", types.ErrNotOwner, doc.ID())
	}
	return nil
}
