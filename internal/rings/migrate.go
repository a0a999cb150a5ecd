package rings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// Engine migrates a document's flags to the current layout.
//
//	V1: one flag per ring, keyed by the ring's name, using the old field names.
//	V2: a list of rings under the rings key, no version tag.
//	V3: an id-keyed mapping under the rings key and version 3.
//
// Transitions run in order within one call, so a V1 document reaches V3 in
// a single Migrate. The version tag is the final write; a failed migration
// leaves it unset and the next call retries the unfinished step.
type Engine struct {
	logger *slog.Logger
	signal *Signal
}

// NewEngine returns an engine that logs to logger and fires signal after
// a migration that wrote anything. A nil signal disables notification.
func NewEngine(logger *slog.Logger, signal *Signal) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, signal: signal}
}

// legacyFields maps V1 record fields onto current ring fields.
var legacyFields = map[string]types.Field{
	"angle":      types.FieldAngle,
	"direction":  types.FieldDirection,
	"radius":     types.FieldRadius,
	"colour":     types.FieldStrokeColour,
	"opacity":    types.FieldStrokeOpacity,
	"weight":     types.FieldStrokeWeight,
	"visibility": types.FieldVisibility,
}

// isStray reports whether key is a V1 per-ring flag.
func isStray(key string) bool {
	return key != types.RingsKey && key != types.VersionKey
}

// NeedsMigrationFromV1 reports whether the namespace holds any per-ring
// legacy flag beside the rings key and the version tag.
func (e *Engine) NeedsMigrationFromV1(doc types.Document) bool {
	for _, f := range doc.Flags(types.Namespace) {
		if isStray(f.Key) {
			return true
		}
	}
	return false
}

// NeedsMigrationFromV2 reports whether the rings key holds a list.
func (e *Engine) NeedsMigrationFromV2(doc types.Document) bool {
	v, ok := lookupFlag(doc.Flags(types.Namespace), types.RingsKey)
	return shapeOf(v, ok) == shapeList
}

// NeedsMigration reports whether Migrate would change the document.
// A document tagged with the current version never needs migration.
func (e *Engine) NeedsMigration(doc types.Document) (bool, error) {
	version, err := documentVersion(doc.Flags(types.Namespace))
	if err != nil {
		return false, err
	}
	switch {
	case version == types.CurrentVersion:
		return false, nil
	case version > types.CurrentVersion:
		return false, fmt.Errorf("%w: %d", types.ErrUnsupportedVersion, version)
	}
	return e.NeedsMigrationFromV1(doc) || e.NeedsMigrationFromV2(doc), nil
}

// Migrate brings doc to the current layout and reports whether it wrote
// anything. Calling it on a current document is a no-op.
func (e *Engine) Migrate(ctx context.Context, doc types.Document) (bool, error) {
	needed, err := e.NeedsMigration(doc)
	if err != nil || !needed {
		return false, err
	}

	log := e.logger.With("document", doc.ID(), "namespace", types.Namespace)
	log.Info("migrating aura rings")

	tracked := &writeTracker{Document: doc}
	defer func() {
		// Stored data changed even when a later step failed.
		if tracked.wrote && e.signal != nil {
			e.signal.Fire()
		}
	}()

	if e.NeedsMigrationFromV1(tracked) {
		log.Info("migrating from V1")
		if err := e.migrateFromV1(ctx, tracked, log); err != nil {
			return tracked.wrote, fmt.Errorf("migrating %s from V1: %w", doc.ID(), err)
		}
	}

	if e.NeedsMigrationFromV2(tracked) {
		log.Info("migrating from V2")
		if err := e.migrateFromV2(ctx, tracked, log); err != nil {
			return tracked.wrote, fmt.Errorf("migrating %s from V2: %w", doc.ID(), err)
		}
	}

	log.Info("aura rings migrated", "wrote", tracked.wrote)
	return tracked.wrote, nil
}

// writeTracker records whether any write reached the document.
type writeTracker struct {
	types.Document
	wrote bool
}

func (w *writeTracker) SetFlag(ctx context.Context, namespace, key string, value any) error {
	err := w.Document.SetFlag(ctx, namespace, key, value)
	if err == nil {
		w.wrote = true
	}
	return err
}

func (w *writeTracker) UnsetFlag(ctx context.Context, namespace, key string) error {
	err := w.Document.UnsetFlag(ctx, namespace, key)
	if err == nil {
		w.wrote = true
	}
	return err
}

// Preview returns the container Migrate would produce without writing.
// Records that cannot be decoded are left out.
func (e *Engine) Preview(doc types.Document) (types.Container, error) {
	if _, err := e.NeedsMigration(doc); err != nil {
		return nil, err
	}
	flags := doc.Flags(types.Namespace)
	list, _, err := e.collectV2(flags, e.logger.With("document", doc.ID(), "preview", true))
	if err != nil {
		return nil, err
	}
	c, _, err := toV3(list)
	return c, err
}

// collectV2 builds the V2 list: the rings already stored under the rings key
// followed by one ring per stray flag, each given the next free id. Every
// stray yields a ring, so every returned stray key is safe to unset.
func (e *Engine) collectV2(flags []types.Flag, log *slog.Logger) ([]types.Ring, []string, error) {
	list, err := seedList(flags, log)
	if err != nil {
		return nil, nil, err
	}

	var strays []string
	for _, f := range flags {
		if !isStray(f.Key) {
			continue
		}
		strays = append(strays, f.Key)

		id, err := NextAvailableID(list)
		if err != nil {
			return nil, nil, err
		}
		r, issues := migrateLegacyRing(f.Value, id, f.Key)
		for _, err := range issues {
			log.Warn("recovering legacy ring", "key", f.Key, "error", err)
		}
		list = append(list, r)
	}
	return list, strays, nil
}

// seedList returns the rings already stored under the rings key as a list.
func seedList(flags []types.Flag, log *slog.Logger) ([]types.Ring, error) {
	value, ok := lookupFlag(flags, types.RingsKey)
	switch shape := shapeOf(value, ok); shape {
	case shapeAbsent:
		return nil, nil
	case shapeList:
		list, issues := decodeList(value.([]any))
		logRecovered(log, issues)
		return list, nil
	case shapeMap:
		c, dropped := decodeContainer(value.(map[string]any))
		logDropped(log, dropped)
		return c.Rings(), nil
	default:
		return nil, fmt.Errorf("%w: %s holds %s value", types.ErrShape, types.RingsKey, shape)
	}
}

// migrateFromV1 folds every stray flag into the V2 list, persists the list,
// then removes the strays. The list is written before any stray is removed,
// so an interrupted run never loses a ring; a retry may duplicate one.
func (e *Engine) migrateFromV1(ctx context.Context, doc types.Document, log *slog.Logger) error {
	list, strays, err := e.collectV2(doc.Flags(types.Namespace), log)
	if err != nil {
		return err
	}

	value, err := encodeList(list)
	if err != nil {
		return err
	}
	if err := writeRings(ctx, doc, value, false); err != nil {
		return err
	}

	for _, key := range strays {
		if err := doc.UnsetFlag(ctx, types.Namespace, key); err != nil {
			return fmt.Errorf("unsetting legacy flag %q: %w", key, err)
		}
	}
	return nil
}

// migrateFromV2 converts the stored list into the id-keyed mapping and then
// sets the version tag.
func (e *Engine) migrateFromV2(ctx context.Context, doc types.Document, log *slog.Logger) error {
	value, ok, err := doc.GetFlag(ctx, types.Namespace, types.RingsKey)
	if err != nil {
		return fmt.Errorf("reading %s: %w", types.RingsKey, err)
	}
	items, isList := value.([]any)
	if !ok || !isList {
		return fmt.Errorf("%w: %s holds %s value", types.ErrShape, types.RingsKey, shapeOf(value, ok))
	}

	list, issues := decodeList(items)
	logRecovered(log, issues)

	c, renumbered, err := toV3(list)
	if err != nil {
		return err
	}
	for _, rn := range renumbered {
		log.Warn("renumbered ring during migration", "name", rn.name, "from", rn.from, "to", rn.to)
	}

	encoded, err := encodeContainer(c)
	if err != nil {
		return err
	}
	if err := writeRings(ctx, doc, encoded, false); err != nil {
		return err
	}
	if err := doc.SetFlag(ctx, types.Namespace, types.VersionKey, types.CurrentVersion); err != nil {
		return fmt.Errorf("setting %s: %w", types.VersionKey, err)
	}
	return nil
}

// renumbering records a ring whose id changed while building the mapping.
type renumbering struct {
	name     string
	from, to int
}

// toV3 keys the list by id in list order. A ring whose id is out of range or
// already taken by an earlier ring receives the next free id instead, so the
// mapping never loses a ring to a key collision.
func toV3(list []types.Ring) (types.Container, []renumbering, error) {
	c := make(types.Container, len(list))
	var deferred []types.Ring
	for _, r := range list {
		if r.ID < types.MinRingID || r.ID > types.MaxRingID {
			deferred = append(deferred, r)
			continue
		}
		if _, taken := c.Lookup(r.ID); taken {
			deferred = append(deferred, r)
			continue
		}
		c.Put(r)
	}

	var renumbered []renumbering
	for _, r := range deferred {
		id, err := NextAvailableIDIn(c)
		if err != nil {
			return nil, nil, err
		}
		renumbered = append(renumbered, renumbering{name: r.Name, from: r.ID, to: id})
		r.ID = id
		c.Put(r)
	}
	return c, renumbered, nil
}

// migrateLegacyRing converts a V1 record into a current ring with the given
// id and name. Fields absent from the old record, or that cannot be
// recovered, keep their defaults. A value that is not an object yields a
// default ring under the stray's name.
func migrateLegacyRing(value any, id int, name string) (types.Ring, []error) {
	var issues []error
	renamed := make(map[string]any, len(legacyFields))
	if m, ok := value.(map[string]any); ok {
		for old, f := range legacyFields {
			if v, present := m[old]; present {
				renamed[string(f)] = v
			}
		}
	} else {
		issues = append(issues, fmt.Errorf("%w: legacy record is %T, not an object", types.ErrMalformedRecord, value))
	}

	r, fieldIssues := decodeLenient(renamed)
	r.ID = id
	r.Name = name
	return r, append(issues, fieldIssues...)
}

func logDropped(log *slog.Logger, dropped []droppedRecord) {
	for _, d := range dropped {
		log.Warn("dropping malformed ring", "key", d.key, "error", d.err)
	}
}

func logRecovered(log *slog.Logger, issues []droppedRecord) {
	for _, d := range issues {
		log.Warn("recovering legacy ring", "key", d.key, "error", d.err)
	}
}
