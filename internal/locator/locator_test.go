package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/browser/fake"
	"github.com/KCumlee/Job-assignments/internal/mocks"
)

const (
	testTimeout  = 150 * time.Millisecond
	testInterval = 10 * time.Millisecond
)

var target = browser.XPath(`//div[@id='target']`)

func newTestLocator(t *testing.T, d browser.Driver) *Locator {
	t.Helper()
	return New(d, zaptest.NewLogger(t), WithTimeout(testTimeout), WithPollInterval(testInterval))
}

func TestLocate(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("returns immediately when present", func(t *testing.T) {
		d := fake.New()
		d.Set(target, &fake.Node{Text: "ready"})
		l := newTestLocator(t, d)

		start := time.Now()
		el, err := l.Locate(context.Background(), target)
		require.NoError(t, err)
		assert.Less(t, time.Since(start), testTimeout)

		text, err := el.Text(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ready", text)
		assert.Equal(t, 1, d.Calls(target))
	})

	t.Run("waits for an element rendered late", func(t *testing.T) {
		d := fake.New()
		d.OnFind(target, func(d *fake.Driver, call int) error {
			if call == 4 {
				d.Set(target, &fake.Node{Text: "late"})
			}
			return nil
		})
		l := newTestLocator(t, d)

		el, err := l.Locate(context.Background(), target)
		require.NoError(t, err)
		text, err := el.Text(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "late", text)
		assert.Equal(t, 4, d.Calls(target))
	})

	t.Run("fails with NotFound only after the full timeout", func(t *testing.T) {
		d := fake.New()
		l := newTestLocator(t, d)

		start := time.Now()
		el, err := l.Locate(context.Background(), target)
		elapsed := time.Since(start)

		assert.Nil(t, el)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.GreaterOrEqual(t, elapsed, testTimeout)
		assert.False(t, browser.IsTransient(err), "transient conditions must not leak past the locator")

		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, target, nf.Query)
		assert.Equal(t, testTimeout, nf.Timeout)
		assert.Greater(t, nf.Attempts, 1)
		assert.Nil(t, nf.Cause)
		assert.Contains(t, err.Error(), target.Selector)
	})

	t.Run("per-call timeout overrides the default", func(t *testing.T) {
		d := fake.New()
		l := New(d, zaptest.NewLogger(t), WithTimeout(time.Minute), WithPollInterval(testInterval))

		start := time.Now()
		_, err := l.Locate(context.Background(), target, Timeout(30*time.Millisecond))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("tolerates a node replaced once during polling", func(t *testing.T) {
		// The first handle goes stale between lookup and read; the replacement is stable.
		el := &mocks.MockElement{}
		el.On("Displayed", mock.Anything).Return(false, browser.ErrStaleElement).Once()
		stable := &mocks.MockElement{}
		stable.On("Displayed", mock.Anything).Return(true, nil)

		md := &mocks.MockDriver{}
		md.On("FindElements", mock.Anything, target).Return(mocks.Elements(el), nil).Once()
		md.On("FindElements", mock.Anything, target).Return(mocks.Elements(stable), nil)

		l := newTestLocator(t, md)
		got, err := l.Locate(context.Background(), target)
		require.NoError(t, err)
		assert.Same(t, stable, got)
		md.AssertNumberOfCalls(t, "FindElements", 2)
		el.AssertExpectations(t)
	})

	t.Run("stale handles from the fake driver are retried", func(t *testing.T) {
		d := fake.New()
		d.Set(target, &fake.Node{Text: "v1"})
		d.OnFind(target, func(d *fake.Driver, call int) error {
			if call == 1 {
				return browser.ErrStaleElement
			}
			return nil
		})
		l := newTestLocator(t, d)

		el, err := l.Locate(context.Background(), target)
		require.NoError(t, err)
		text, err := el.Text(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "v1", text)
	})

	t.Run("genuine failures propagate without retry", func(t *testing.T) {
		boom := errors.New("invalid xpath expression")
		md := &mocks.MockDriver{}
		md.On("FindElements", mock.Anything, target).Return(nil, boom)

		l := newTestLocator(t, md)
		start := time.Now()
		_, err := l.Locate(context.Background(), target)

		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Less(t, time.Since(start), testTimeout)
		md.AssertNumberOfCalls(t, "FindElements", 1)
	})

	t.Run("unsupported strategy fails fast", func(t *testing.T) {
		md := &mocks.MockDriver{}
		l := newTestLocator(t, md)

		_, err := l.Locate(context.Background(), browser.Query{By: "link-text", Selector: "Search"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported selection strategy")
		md.AssertNotCalled(t, "FindElements", mock.Anything, mock.Anything)
	})

	t.Run("caller cancellation surfaces as NotFound with a cause", func(t *testing.T) {
		d := fake.New()
		l := New(d, zaptest.NewLogger(t), WithTimeout(time.Minute), WithPollInterval(testInterval))

		ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
		defer cancel()

		_, err := l.Locate(ctx, target)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLocateAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := fake.New()
	rows := browser.CSS("a.listing")
	d.Set(rows, &fake.Node{Text: "one"}, &fake.Node{Text: "two"}, &fake.Node{Text: "three"})
	l := newTestLocator(t, d)

	elems, err := l.LocateAll(context.Background(), rows)
	require.NoError(t, err)
	assert.Len(t, elems, 3)
}

func TestExists(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("true when present", func(t *testing.T) {
		d := fake.New()
		d.Set(target, &fake.Node{})
		ok, err := newTestLocator(t, d).Exists(context.Background(), target)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("false without error when absent for the whole window", func(t *testing.T) {
		d := fake.New()
		start := time.Now()
		ok, err := newTestLocator(t, d).Exists(context.Background(), target)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), testTimeout)
	})

	t.Run("genuine failures still propagate", func(t *testing.T) {
		boom := errors.New("session crashed")
		md := &mocks.MockDriver{}
		md.On("FindElements", mock.Anything, target).Return(nil, boom)

		ok, err := newTestLocator(t, md).Exists(context.Background(), target)
		assert.False(t, ok)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancellation is not reported as absence", func(t *testing.T) {
		d := fake.New()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ok, err := newTestLocator(t, d).Exists(ctx, target)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStale(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("true once the node is replaced", func(t *testing.T) {
		d := fake.New()
		d.Set(target, &fake.Node{Text: "old"})
		l := newTestLocator(t, d)
		el, err := l.Locate(context.Background(), target)
		require.NoError(t, err)

		d.Set(target, &fake.Node{Text: "new"})

		gone, err := l.Stale(context.Background(), el)
		require.NoError(t, err)
		assert.True(t, gone)
	})

	t.Run("false after the timeout when still attached", func(t *testing.T) {
		d := fake.New()
		d.Set(target, &fake.Node{})
		l := newTestLocator(t, d)
		el, err := l.Locate(context.Background(), target)
		require.NoError(t, err)

		start := time.Now()
		gone, err := l.Stale(context.Background(), el, Timeout(40*time.Millisecond))
		require.NoError(t, err)
		assert.False(t, gone)
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})

	t.Run("other errors end the wait", func(t *testing.T) {
		el := new(mocks.MockElement)
		el.On("Displayed", mock.Anything).Return(false, browser.ErrSessionClosed).Once()
		l := newTestLocator(t, new(mocks.MockDriver))

		gone, err := l.Stale(context.Background(), el)
		assert.False(t, gone)
		assert.ErrorIs(t, err, browser.ErrSessionClosed)
		el.AssertExpectations(t)
	})

	t.Run("caller cancellation is returned", func(t *testing.T) {
		d := fake.New()
		d.Set(target, &fake.Node{})
		l := newTestLocator(t, d)
		el, err := l.Locate(context.Background(), target)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = l.Stale(ctx, el)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
