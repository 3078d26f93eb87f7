package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/etnz/tradeledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestBook(t *testing.T) (*Book, *Memory, *Memory) {
	t.Helper()
	primary, backup := NewMemory(), NewMemory()
	b := NewBook(primary, "ledger", WithBackup(backup), WithClock(func() time.Time { return fixedNow }))
	t.Cleanup(func() { _ = b.Close() })
	return b, primary, backup
}

func raw(side, date, qty, price string) tradeledger.RawTrade {
	return tradeledger.RawTrade{Market: "KR", Symbol: "005930", Side: side, Date: date, Quantity: qty, Price: price}
}

func TestBookLoadEmpty(t *testing.T) {
	b, _, _ := newTestBook(t)
	l, status, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Empty, status)
	assert.Equal(t, 0, l.Len())
}

func TestBookAddAndReload(t *testing.T) {
	ctx := context.Background()
	b, primary, backup := newTestBook(t)

	added, err := b.Add(ctx, raw("buy", "2024-01-02 09:00", "100", "586"))
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	_, err = b.Add(ctx, raw("sell", "2024-01-03", "101", "600"))
	assert.ErrorIs(t, err, tradeledger.ErrOversell)

	_, err = b.Add(ctx, raw("sell", "2024-01-03", "abc", "600"))
	assert.ErrorIs(t, err, tradeledger.ErrInvalidQuantity)

	l, status, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Loaded, status)
	assert.Equal(t, 1, l.Len())
	assert.True(t, l.LastSaved().Equal(fixedNow))

	require.NoError(t, b.Close())
	doc, ok, _ := primary.Get(ctx, "ledger")
	require.True(t, ok)
	copied, ok, _ := backup.Load(ctx, "ledger")
	require.True(t, ok)
	assert.Equal(t, string(doc), string(copied), "the backup holds the last document")
	assert.Contains(t, string(doc), `"lastSaved": "2024-03-01T12:00:00Z"`)
}

func TestBookEditDelete(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)

	buy, err := b.Add(ctx, raw("buy", "2024-01-02", "10", "100"))
	require.NoError(t, err)
	sell, err := b.Add(ctx, raw("sell", "2024-01-03", "5", "120"))
	require.NoError(t, err)

	_, err = b.Edit(ctx, buy.ID, func(r *tradeledger.RawTrade) { r.Quantity = "4" })
	assert.ErrorIs(t, err, tradeledger.ErrOversell)

	edited, err := b.Edit(ctx, buy.ID, func(r *tradeledger.RawTrade) { r.Price = "90" })
	require.NoError(t, err)
	assert.Equal(t, buy.ID, edited.ID)
	assert.True(t, edited.Price.Equal(tradeledger.M(90, "KRW")))

	_, err = b.Edit(ctx, "missing", func(r *tradeledger.RawTrade) {})
	assert.ErrorIs(t, err, tradeledger.ErrRecordNotFound)

	_, err = b.Delete(ctx, buy.ID)
	assert.ErrorIs(t, err, tradeledger.ErrOversell)

	_, err = b.Delete(ctx, sell.ID)
	require.NoError(t, err)
	_, err = b.Delete(ctx, buy.ID)
	require.NoError(t, err)

	l, _, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestBookEditReloads(t *testing.T) {
	ctx := context.Background()
	b, primary, _ := newTestBook(t)
	buy, err := b.Add(ctx, raw("buy", "2024-01-02", "10", "100"))
	require.NoError(t, err)

	// another writer sells 8 behind the book's back
	other := NewBook(primary, "ledger")
	_, err = other.Add(ctx, raw("sell", "2024-01-03", "8", "100"))
	require.NoError(t, err)

	// validated against the stored ledger, not a stale copy
	_, err = b.Edit(ctx, buy.ID, func(r *tradeledger.RawTrade) { r.Quantity = "5" })
	assert.ErrorIs(t, err, tradeledger.ErrOversell)
}

func TestBookRestoreFromBackupWhenPrimaryEmpty(t *testing.T) {
	ctx := context.Background()
	b, primary, backup := newTestBook(t)
	_, err := b.Add(ctx, raw("buy", "2024-01-02", "10", "100"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	// primary lost
	require.NoError(t, primary.Set(ctx, "ledger", nil))

	fresh := NewBook(primary, "ledger", WithBackup(backup))
	l, status, err := fresh.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Restored, status)
	assert.Equal(t, 1, l.Len())

	_, status, err = fresh.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Loaded, status, "the restored document is written back")
}

func TestBookMalformed(t *testing.T) {
	ctx := context.Background()
	b, primary, _ := newTestBook(t)
	require.NoError(t, primary.Set(ctx, "ledger", []byte(`{"version":1,"lots":[{"bad"`)))

	l, status, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Malformed, status)
	assert.Equal(t, 0, l.Len())

	quarantined := malformedKeys(primary)
	require.Len(t, quarantined, 1)
	data, _, _ := primary.Get(ctx, quarantined[0])
	assert.Equal(t, `{"version":1,"lots":[{"bad"`, string(data))

	// reading again does not pile up copies
	_, status, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Malformed, status)
	_, _, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, malformedKeys(primary), 1)

	// a restore replaces the malformed document
	_, err = b.Restore(ctx, strings.NewReader(`{"version":1,"lots":[]}`))
	require.NoError(t, err)
	_, err = b.Add(ctx, raw("buy", "2024-01-02", "1", "1"))
	require.NoError(t, err)
	_, status, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Loaded, status)
}

func malformedKeys(m *Memory) []string {
	var keys []string
	for _, k := range m.Keys() {
		if strings.HasPrefix(k, "ledger.malformed.") {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestBookMalformedKeepsBackup(t *testing.T) {
	ctx := context.Background()
	b, primary, backup := newTestBook(t)
	_, err := b.Add(ctx, raw("buy", "2024-01-02", "10", "100"))
	require.NoError(t, err)
	_, err = b.Add(ctx, raw("sell", "2024-01-03", "4", "120"))
	require.NoError(t, err)
	require.NoError(t, b.Close())
	good, ok, _ := backup.Load(ctx, "ledger")
	require.True(t, ok)

	require.NoError(t, primary.Set(ctx, "ledger", []byte(`not json`)))

	_, err = b.Add(ctx, raw("buy", "2024-01-04", "1", "100"))
	assert.ErrorIs(t, err, ErrRestoreRequired)
	assert.ErrorIs(t, err, tradeledger.ErrMalformedLedgerDocument)
	_, err = b.Delete(ctx, "any")
	assert.ErrorIs(t, err, ErrRestoreRequired)
	_, err = b.Edit(ctx, "any", func(*tradeledger.RawTrade) {})
	assert.ErrorIs(t, err, ErrRestoreRequired)
	_, err = b.Import(ctx, strings.NewReader("KR,005930,BUY,2024-01-05,,1,100,0\n"))
	assert.ErrorIs(t, err, ErrRestoreRequired)
	require.NoError(t, b.Close())

	kept, _, _ := backup.Load(ctx, "ledger")
	assert.Equal(t, string(good), string(kept), "the backup is untouched")
	doc, _, _ := primary.Get(ctx, "ledger")
	assert.Equal(t, "not json", string(doc))

	l, err := b.RestoreFromBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
}

func TestBookImport(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	csv := "symbol,side,date,qty,price\n005930,B,2024/01/02,10,100\nAAPL,B,2024/01/02,1,190\nbad,X,2024/01/02,1,1\n"

	report, err := b.Import(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, report.Accepted, 2)
	assert.Len(t, report.Errors, 1)

	report, err = b.Import(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, report.Accepted)
	assert.Equal(t, 2, report.Skipped)

	before, _, err := b.Load(ctx)
	require.NoError(t, err)
	_, err = b.Import(ctx, strings.NewReader(",005930,S,2024/01/03,,11,100\n"))
	var rejected *tradeledger.ImportRejectedError
	require.True(t, errors.As(err, &rejected), "got %v", err)
	after, _, err := b.Load(ctx)
	require.NoError(t, err)
	assert.True(t, after.Equal(before))
}

func TestBookRestore(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	_, err := b.Add(ctx, raw("buy", "2024-01-02", "10", "100"))
	require.NoError(t, err)
	l, _, err := b.Load(ctx)
	require.NoError(t, err)

	var dump bytes.Buffer
	require.NoError(t, tradeledger.EncodeDocument(&dump, l))

	other, _, _ := newTestBook(t)
	restored, err := other.Restore(ctx, &dump)
	require.NoError(t, err)
	assert.True(t, restored.Equal(l))

	oversold := `{"version":1,"lots":[{"id":"a","timestamp":"2024-01-02 09:00:00","market":"KR","symbol":"A","type":"SELL","qty":1,"price":2}]}`
	_, err = other.Restore(ctx, strings.NewReader(oversold))
	assert.ErrorIs(t, err, tradeledger.ErrOversell)
	_, err = other.Restore(ctx, strings.NewReader("nope"))
	assert.ErrorIs(t, err, tradeledger.ErrMalformedLedgerDocument)

	// the backup only ever received the valid dump
	require.NoError(t, other.Close())
	got, err := other.RestoreFromBackup(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(l))

	_, err = NewBook(NewMemory(), "ledger").RestoreFromBackup(ctx)
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestBookConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Add(ctx, raw("buy", "2024-01-02", "1", "100"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	l, _, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, l.Len(), "no mutation is lost")
}
