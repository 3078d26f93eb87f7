package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/etnz/tradeledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoadStatus tells where a loaded ledger comes from.
type LoadStatus int

const (
	// Loaded means the primary document was read.
	Loaded LoadStatus = iota
	// Empty means there was no document, neither in the primary store nor
	// in the backup.
	Empty
	// Restored means the primary store was empty and the document was
	// recovered from the backup, then written back to the primary store.
	Restored
	// Malformed means the primary document could not be decoded. It was
	// copied aside and an empty ledger is returned instead.
	Malformed
)

func (s LoadStatus) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Empty:
		return "empty"
	case Restored:
		return "restored"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// backupTimeout bounds each background backup write.
const backupTimeout = 30 * time.Second

// Book hosts a ledger document in a Primary store.
//
// Every mutation reloads the document, applies the engine and rewrites the
// full document before the next mutation starts. A Book is safe for
// concurrent use.
type Book struct {
	key        string
	primary    Primary
	backup     Backup
	markets    *tradeledger.Markets
	reconciler tradeledger.Reconciler
	log        *zap.Logger
	now        func() time.Time

	mu sync.Mutex     // serializes load, compute, write
	wg sync.WaitGroup // pending backups

	backupMu   sync.Mutex // serializes backup writes
	backupSeq  int        // last scheduled backup, guarded by mu
	backupDone int        // last written backup, guarded by backupMu
}

// Option configures a Book.
type Option func(*Book)

// WithBackup sets the backup store.
func WithBackup(b Backup) Option { return func(book *Book) { book.backup = b } }

// WithLogger sets the logger, zap.NewNop by default.
func WithLogger(l *zap.Logger) Option { return func(book *Book) { book.log = l } }

// WithMarkets sets the known markets, tradeledger.DefaultMarkets by default.
func WithMarkets(m *tradeledger.Markets) Option { return func(book *Book) { book.markets = m } }

// WithDefaultImportTime sets the time of imported rows without one.
func WithDefaultImportTime(hhmmss string) Option {
	return func(book *Book) { book.reconciler.DefaultTime = hhmmss }
}

// WithClock replaces time.Now, for lastSaved stamps.
func WithClock(now func() time.Time) Option { return func(book *Book) { book.now = now } }

// NewBook returns a Book storing its document under key in primary.
func NewBook(primary Primary, key string, opts ...Option) *Book {
	b := &Book{
		key:     key,
		primary: primary,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.markets == nil {
		b.markets = tradeledger.DefaultMarkets()
	}
	defaultTime := b.reconciler.DefaultTime
	b.reconciler = tradeledger.NewReconciler(b.markets)
	if defaultTime != "" {
		b.reconciler.DefaultTime = defaultTime
	}
	b.log = b.log.With(zap.String("key", key))
	return b
}

// Markets returns the markets known to the book.
func (b *Book) Markets() *tradeledger.Markets { return b.markets }

// Normalizer returns the normalizer used for new trades.
func (b *Book) Normalizer() tradeledger.Normalizer { return b.reconciler.Normalizer }

// Load reads the ledger.
//
// When the primary store has no document, the backup is tried and, if it has
// one, the document is written back to the primary store. A document that
// cannot be decoded is copied aside under "<key>.malformed.<uuid>" and an
// empty ledger is returned with the Malformed status. Until Restore or
// RestoreFromBackup replaces it, mutations fail with ErrRestoreRequired.
func (b *Book) Load(ctx context.Context) (tradeledger.Ledger, LoadStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx)
}

func (b *Book) load(ctx context.Context) (tradeledger.Ledger, LoadStatus, error) {
	data, ok, err := b.primary.Get(ctx, b.key)
	if err != nil {
		return tradeledger.Ledger{}, 0, fmt.Errorf("cannot load ledger: %w", err)
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return b.restoreIfEmpty(ctx)
	}

	l, err := tradeledger.DecodeDocument(bytes.NewReader(data), b.markets)
	if err != nil {
		quarantine, qerr := b.setAside(ctx, data)
		if qerr != nil {
			// without a copy, overwriting the document would lose it.
			return tradeledger.Ledger{}, 0, fmt.Errorf("cannot set malformed ledger aside: %w (decoding failed with: %v)", qerr, err)
		}
		b.log.Warn("malformed ledger document set aside",
			zap.String("status", Malformed.String()),
			zap.String("quarantine", quarantine),
			zap.Error(err))
		return tradeledger.NewLedger(), Malformed, nil
	}
	return l, Loaded, nil
}

// malformedNamespace derives quarantine keys from the document content.
var malformedNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("tradeledger.malformed"))

// setAside copies a malformed document under "<key>.malformed.<uuid>". The
// uuid is derived from the content, so the same document is copied once
// however many times it is read.
func (b *Book) setAside(ctx context.Context, data []byte) (string, error) {
	quarantine := fmt.Sprintf("%s.malformed.%s", b.key, uuid.NewSHA1(malformedNamespace, data))
	if _, ok, err := b.primary.Get(ctx, quarantine); err == nil && ok {
		return quarantine, nil
	}
	return quarantine, b.primary.Set(ctx, quarantine, data)
}

// ErrRestoreRequired is returned by mutations while the stored document is
// malformed. It wraps tradeledger.ErrMalformedLedgerDocument.
var ErrRestoreRequired = fmt.Errorf("%w: restore the ledger before changing it", tradeledger.ErrMalformedLedgerDocument)

// loadForUpdate loads the ledger a mutation applies to. A malformed document
// is refused: saving on top of the empty fallback would also replace the
// backup, the last good copy.
func (b *Book) loadForUpdate(ctx context.Context) (tradeledger.Ledger, error) {
	l, status, err := b.load(ctx)
	if err != nil {
		return tradeledger.Ledger{}, err
	}
	if status == Malformed {
		return tradeledger.Ledger{}, ErrRestoreRequired
	}
	return l, nil
}

// restoreIfEmpty recovers the document from the backup store.
func (b *Book) restoreIfEmpty(ctx context.Context) (tradeledger.Ledger, LoadStatus, error) {
	if b.backup == nil {
		return tradeledger.NewLedger(), Empty, nil
	}
	data, ok, err := b.backup.Load(ctx, b.key)
	if err != nil {
		b.log.Warn("backup unavailable", zap.Error(err))
		return tradeledger.NewLedger(), Empty, nil
	}
	if !ok {
		return tradeledger.NewLedger(), Empty, nil
	}
	l, err := tradeledger.DecodeDocument(bytes.NewReader(data), b.markets)
	if err != nil {
		b.log.Warn("backup document is malformed", zap.Error(err))
		return tradeledger.NewLedger(), Empty, nil
	}
	if err := b.primary.Set(ctx, b.key, data); err != nil {
		return tradeledger.Ledger{}, 0, fmt.Errorf("cannot write restored ledger: %w", err)
	}
	b.log.Info("ledger restored from backup",
		zap.String("status", Restored.String()),
		zap.Int("trades", l.Len()))
	return l, Restored, nil
}

// Save writes the full ledger document, stamped with the current time, to
// the primary store and schedules a copy to the backup store. It returns the
// stamped ledger.
func (b *Book) Save(ctx context.Context, l tradeledger.Ledger) (tradeledger.Ledger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save(ctx, l)
}

func (b *Book) save(ctx context.Context, l tradeledger.Ledger) (tradeledger.Ledger, error) {
	l = l.WithLastSaved(b.now().UTC().Truncate(time.Second))
	var buf bytes.Buffer
	if err := tradeledger.EncodeDocument(&buf, l); err != nil {
		return tradeledger.Ledger{}, err
	}
	data := buf.Bytes()
	if err := b.primary.Set(ctx, b.key, data); err != nil {
		return tradeledger.Ledger{}, fmt.Errorf("cannot save ledger: %w", err)
	}
	b.scheduleBackup(data)
	return l, nil
}

// scheduleBackup copies data to the backup store in the background. Failures
// are logged only: the primary store is authoritative. A backup older than
// the last written one is dropped.
func (b *Book) scheduleBackup(data []byte) {
	if b.backup == nil {
		return
	}
	b.backupSeq++
	seq := b.backupSeq
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.backupMu.Lock()
		defer b.backupMu.Unlock()
		if seq < b.backupDone {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
		defer cancel()
		if err := b.backup.Save(ctx, b.key, data); err != nil {
			b.log.Error("backup failed", zap.Error(err))
			return
		}
		b.backupDone = seq
		b.log.Debug("backup saved", zap.Int("bytes", len(data)))
	}()
}

// Close waits for pending backups.
func (b *Book) Close() error {
	b.wg.Wait()
	return nil
}

// mutate runs load, f, save under the lock.
func (b *Book) mutate(ctx context.Context, f func(tradeledger.Ledger) (tradeledger.Ledger, error)) (tradeledger.Ledger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.loadForUpdate(ctx)
	if err != nil {
		return tradeledger.Ledger{}, err
	}
	next, err := f(l)
	if err != nil {
		return l, err
	}
	return b.save(ctx, next)
}

// Add normalizes raw and inserts it.
func (b *Book) Add(ctx context.Context, raw tradeledger.RawTrade) (tradeledger.Trade, error) {
	var added tradeledger.Trade
	_, err := b.mutate(ctx, func(l tradeledger.Ledger) (tradeledger.Ledger, error) {
		t, err := b.Normalizer().Normalize(raw)
		if err != nil {
			return l, err
		}
		next, t, err := l.Insert(t)
		if err != nil {
			return l, err
		}
		added = t
		return next, nil
	})
	if err != nil {
		b.log.Info("trade rejected", zap.Error(err))
		return tradeledger.Trade{}, err
	}
	b.log.Info("trade added", zap.String("trade_id", added.ID), zap.Stringer("instrument", added.Instrument()))
	return added, nil
}

// Edit updates the trade identified by id. The update function receives the
// raw fields of the stored trade, as just reloaded, and modifies them.
func (b *Book) Edit(ctx context.Context, id string, update func(*tradeledger.RawTrade)) (tradeledger.Trade, error) {
	var edited tradeledger.Trade
	_, err := b.mutate(ctx, func(l tradeledger.Ledger) (tradeledger.Ledger, error) {
		old, ok := l.Trade(id)
		if !ok {
			return l, fmt.Errorf("%w: %q", tradeledger.ErrRecordNotFound, id)
		}
		raw := tradeledger.RawFromTrade(old)
		update(&raw)
		t, err := b.Normalizer().Normalize(raw)
		if err != nil {
			return l, err
		}
		next, t, err := l.Edit(id, t)
		if err != nil {
			return l, err
		}
		edited = t
		return next, nil
	})
	if err != nil {
		b.log.Info("edit rejected", zap.String("trade_id", id), zap.Error(err))
		return tradeledger.Trade{}, err
	}
	b.log.Info("trade edited", zap.String("trade_id", id), zap.Stringer("instrument", edited.Instrument()))
	return edited, nil
}

// Delete removes the trade identified by id.
func (b *Book) Delete(ctx context.Context, id string) (tradeledger.Trade, error) {
	var deleted tradeledger.Trade
	_, err := b.mutate(ctx, func(l tradeledger.Ledger) (tradeledger.Ledger, error) {
		next, t, err := l.Delete(id)
		deleted = t
		return next, err
	})
	if err != nil {
		b.log.Info("delete rejected", zap.String("trade_id", id), zap.Error(err))
		return tradeledger.Trade{}, err
	}
	b.log.Info("trade deleted", zap.String("trade_id", id), zap.Stringer("instrument", deleted.Instrument()))
	return deleted, nil
}

// Import merges a delimited trade list, see tradeledger.ParseImport and
// tradeledger.Reconciler. Nothing is written when the batch is rejected or
// when no row is accepted.
func (b *Book) Import(ctx context.Context, r io.Reader) (tradeledger.ImportReport, error) {
	log := b.log.With(zap.String("batch", uuid.NewString()))
	rows, err := tradeledger.ParseImport(r)
	if err != nil {
		return tradeledger.ImportReport{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	l, err := b.loadForUpdate(ctx)
	if err != nil {
		log.Warn("import refused", zap.Error(err))
		return tradeledger.ImportReport{}, err
	}
	next, report, err := b.reconciler.Reconcile(l, rows)
	if err != nil {
		log.Warn("import rejected", zap.Int("rows", len(rows)), zap.Error(err))
		return report, err
	}
	if len(report.Accepted) > 0 {
		if _, err := b.save(ctx, next); err != nil {
			return tradeledger.ImportReport{}, err
		}
	}
	log.Info("import done",
		zap.Int("rows", len(rows)),
		zap.Int("accepted", len(report.Accepted)),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

// Restore replaces the ledger with a full JSON dump. The dump must decode and
// pass the oversell check on every instrument.
func (b *Book) Restore(ctx context.Context, r io.Reader) (tradeledger.Ledger, error) {
	l, err := tradeledger.DecodeDocument(r, b.markets)
	if err != nil {
		return tradeledger.Ledger{}, err
	}
	if err := tradeledger.ValidateAll(l); err != nil {
		return tradeledger.Ledger{}, fmt.Errorf("cannot restore: %w", err)
	}
	saved, err := b.Save(ctx, l)
	if err != nil {
		return tradeledger.Ledger{}, err
	}
	b.log.Info("ledger restored from dump", zap.Int("trades", saved.Len()))
	return saved, nil
}

// ErrNoBackup is returned by RestoreFromBackup when there is nothing to
// restore.
var ErrNoBackup = errors.New("no backup available")

// RestoreFromBackup replaces the ledger with the backup document.
func (b *Book) RestoreFromBackup(ctx context.Context) (tradeledger.Ledger, error) {
	if b.backup == nil {
		return tradeledger.Ledger{}, ErrNoBackup
	}
	data, ok, err := b.backup.Load(ctx, b.key)
	if err != nil {
		return tradeledger.Ledger{}, fmt.Errorf("cannot load backup: %w", err)
	}
	if !ok {
		return tradeledger.Ledger{}, ErrNoBackup
	}
	return b.Restore(ctx, bytes.NewReader(data))
}
