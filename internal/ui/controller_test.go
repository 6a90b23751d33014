package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/hemacount/internal/client"
)

type fakeFile struct {
	name    string
	data    string
	openErr error
}

func (f *fakeFile) Name() string { return f.name }

func (f *fakeFile) Open() (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader(f.data)), nil
}

type fakePage struct {
	mu             sync.Mutex
	file           File
	src            string
	previewVisible bool
	placeholderOn  bool
	counts         [3]string
	countWrites    int
	alerts         []string
}

func newFakePage(file File) *fakePage {
	return &fakePage{file: file, placeholderOn: true, counts: [3]string{"-", "-", "-"}}
}

func (p *fakePage) SelectedFile() (File, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file, p.file != nil
}

func (p *fakePage) ShowImage(src string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src = src
	p.previewVisible = true
	p.placeholderOn = false
}

func (p *fakePage) SetCounts(rbc, wbc, platelets string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts = [3]string{rbc, wbc, platelets}
	p.countWrites++
}

func (p *fakePage) Alert(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, msg)
}

type fakeURLs struct {
	next int
	live map[string]bool
}

func newFakeURLs() *fakeURLs {
	return &fakeURLs{live: map[string]bool{}}
}

func (u *fakeURLs) Create(f File) string {
	u.next++
	url := fmt.Sprintf("blob:local/%d", u.next)
	u.live[url] = true
	return url
}

func (u *fakeURLs) Revoke(url string) {
	delete(u.live, url)
}

type predictFunc func(ctx context.Context, filename string, r io.Reader) (*client.Result, error)

func (f predictFunc) Predict(ctx context.Context, filename string, r io.Reader) (*client.Result, error) {
	return f(ctx, filename, r)
}

type countingPredictor struct {
	calls  int
	result *client.Result
	err    error
}

func (p *countingPredictor) Predict(ctx context.Context, filename string, r io.Reader) (*client.Result, error) {
	p.calls++
	return p.result, p.err
}

var fixedNow = time.UnixMilli(1700000000123)

func newController(page Page, urls ObjectURLs, p Predictor) *Controller {
	return NewController(page, urls, p, WithClock(func() time.Time { return fixedNow }))
}

func TestUploadWithoutFile(t *testing.T) {
	page := newFakePage(nil)
	pred := &countingPredictor{}

	newController(page, newFakeURLs(), pred).Upload(context.Background())

	assert.Zero(t, pred.calls)
	assert.Equal(t, []string{MsgNoFile}, page.alerts)
	assert.True(t, page.placeholderOn)
	assert.Zero(t, page.countWrites)
}

func TestPreviewWithoutFileIsNoop(t *testing.T) {
	page := newFakePage(nil)
	urls := newFakeURLs()

	newController(page, urls, &countingPredictor{}).Preview()

	assert.Empty(t, page.src)
	assert.True(t, page.placeholderOn)
	assert.False(t, page.previewVisible)
	assert.Empty(t, page.alerts)
	assert.Zero(t, urls.next)
}

func TestPreviewShowsLocalImage(t *testing.T) {
	page := newFakePage(&fakeFile{name: "smear.jpg", data: "x"})
	pred := &countingPredictor{}

	newController(page, newFakeURLs(), pred).Preview()

	assert.Equal(t, "blob:local/1", page.src)
	assert.True(t, page.previewVisible)
	assert.False(t, page.placeholderOn)
	assert.Zero(t, pred.calls)
}

func TestPreviewTwiceKeepsOneLiveReference(t *testing.T) {
	page := newFakePage(&fakeFile{name: "smear.jpg"})
	urls := newFakeURLs()
	c := newController(page, urls, &countingPredictor{})

	c.Preview()
	c.Preview()

	assert.True(t, page.previewVisible)
	assert.False(t, page.placeholderOn)
	assert.Equal(t, map[string]bool{"blob:local/2": true}, urls.live)

	c.Close()
	assert.Empty(t, urls.live)
}

func TestUploadShowsResult(t *testing.T) {
	page := newFakePage(&fakeFile{name: "smear.jpg", data: "x"})
	urls := newFakeURLs()
	pred := &countingPredictor{result: &client.Result{
		Image:  "/out/1.png",
		Counts: &client.Counts{RBC: 120, WBC: 7},
	}}
	c := newController(page, urls, pred)

	c.Preview()
	c.Upload(context.Background())

	assert.Equal(t, 1, pred.calls)
	assert.Equal(t, "/out/1.png?t=1700000000123", page.src)
	assert.True(t, page.previewVisible)
	assert.False(t, page.placeholderOn)
	assert.Equal(t, [3]string{"120", "7", "0"}, page.counts)
	assert.Empty(t, page.alerts)
	assert.Empty(t, urls.live, "preview reference should be released once replaced")
}

func TestUploadCountsRoundTrip(t *testing.T) {
	for _, counts := range []client.Counts{
		{RBC: 0, WBC: 0, Platelets: 0},
		{RBC: 1, WBC: 2, Platelets: 3},
		{RBC: 98765, WBC: 4321, Platelets: 1000000},
	} {
		page := newFakePage(&fakeFile{name: "a.png"})
		c := newController(page, newFakeURLs(), &countingPredictor{result: &client.Result{Image: "/i.jpg", Counts: &counts}})

		c.Upload(context.Background())

		assert.Equal(t, [3]string{
			fmt.Sprint(counts.RBC), fmt.Sprint(counts.WBC), fmt.Sprint(counts.Platelets),
		}, page.counts)
	}
}

func TestUploadFailureLeavesDisplay(t *testing.T) {
	failures := map[string]error{
		"transport": &client.Error{Kind: client.KindTransport, Err: errors.New("connection refused")},
		"status":    &client.Error{Kind: client.KindStatus, Status: 500, Err: errors.New("Internal Server Error")},
		"schema":    &client.Error{Kind: client.KindSchema, Err: errors.New("missing counts")},
	}

	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			page := newFakePage(&fakeFile{name: "smear.jpg"})
			c := newController(page, newFakeURLs(), &countingPredictor{err: failure})

			c.Upload(context.Background())

			assert.Equal(t, []string{MsgFailed}, page.alerts)
			assert.Zero(t, page.countWrites)
			assert.Equal(t, [3]string{"-", "-", "-"}, page.counts)
			assert.True(t, page.placeholderOn)
			assert.Empty(t, page.src)
		})
	}
}

func TestUploadUnreadableFile(t *testing.T) {
	page := newFakePage(&fakeFile{name: "smear.jpg", openErr: errors.New("read denied")})
	pred := &countingPredictor{}

	newController(page, newFakeURLs(), pred).Upload(context.Background())

	assert.Zero(t, pred.calls)
	assert.Equal(t, []string{MsgFailed}, page.alerts)
}

func TestUploadPassesFileThrough(t *testing.T) {
	page := newFakePage(&fakeFile{name: "smear.jpg", data: "raw-bytes"})
	var gotName, gotData string
	pred := predictFunc(func(ctx context.Context, filename string, r io.Reader) (*client.Result, error) {
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		gotName, gotData = filename, string(b)
		return &client.Result{Image: "/i.jpg", Counts: &client.Counts{}}, nil
	})

	newController(page, newFakeURLs(), pred).Upload(context.Background())

	assert.Equal(t, "smear.jpg", gotName)
	assert.Equal(t, "raw-bytes", gotData)
}

func TestUploadDropsSupersededResponse(t *testing.T) {
	page := newFakePage(&fakeFile{name: "smear.jpg"})
	started := make(chan struct{})
	release := make(chan struct{})

	var calls int
	var mu sync.Mutex
	pred := predictFunc(func(ctx context.Context, filename string, r io.Reader) (*client.Result, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
			return &client.Result{Image: "/old.jpg", Counts: &client.Counts{RBC: 1}}, nil
		}
		return &client.Result{Image: "/new.jpg", Counts: &client.Counts{RBC: 2}}, nil
	})
	c := newController(page, newFakeURLs(), pred)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Upload(context.Background())
	}()
	<-started

	c.Upload(context.Background())
	close(release)
	<-done

	assert.Equal(t, "/new.jpg?t=1700000000123", page.src)
	assert.Equal(t, [3]string{"2", "0", "0"}, page.counts)
	assert.Equal(t, 1, page.countWrites)
}

func TestUploadDropsSupersededFailure(t *testing.T) {
	page := newFakePage(&fakeFile{name: "smear.jpg"})
	started := make(chan struct{})
	release := make(chan struct{})

	var calls int
	var mu sync.Mutex
	pred := predictFunc(func(ctx context.Context, filename string, r io.Reader) (*client.Result, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
			return nil, &client.Error{Kind: client.KindTransport, Err: errors.New("reset")}
		}
		return &client.Result{Image: "/new.jpg", Counts: &client.Counts{WBC: 3}}, nil
	})
	c := newController(page, newFakeURLs(), pred)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Upload(context.Background())
	}()
	<-started

	c.Upload(context.Background())
	close(release)
	<-done

	assert.Empty(t, page.alerts)
	assert.Equal(t, [3]string{"0", "3", "0"}, page.counts)
}

func TestCacheBusted(t *testing.T) {
	at := time.UnixMilli(42)
	assert.Equal(t, "/static/output/processed.jpg?t=42", cacheBusted("/static/output/processed.jpg", at))
	assert.Equal(t, "/img?id=3&t=42", cacheBusted("/img?id=3", at))
}

func TestStartUploadAlertsBeforeReturning(t *testing.T) {
	page := newFakePage(nil)
	pred := &countingPredictor{}

	run, ok := newController(page, newFakeURLs(), pred).StartUpload()

	assert.False(t, ok)
	assert.Nil(t, run)
	assert.Equal(t, []string{MsgNoFile}, page.alerts)
	assert.Zero(t, pred.calls)
}

func TestStartUploadDefersNetwork(t *testing.T) {
	page := newFakePage(&fakeFile{name: "smear.jpg"})
	pred := &countingPredictor{result: &client.Result{Image: "/i.jpg", Counts: &client.Counts{Platelets: 9}}}

	run, ok := newController(page, newFakeURLs(), pred).StartUpload()
	require.True(t, ok)
	assert.Zero(t, pred.calls)
	assert.Empty(t, page.alerts)

	run(context.Background())
	assert.Equal(t, 1, pred.calls)
	assert.Equal(t, [3]string{"0", "0", "9"}, page.counts)
}

func TestStartUploadOrdersByClick(t *testing.T) {
	page := newFakePage(&fakeFile{name: "smear.jpg"})
	pred := predictFunc(func(ctx context.Context, filename string, r io.Reader) (*client.Result, error) {
		return &client.Result{Image: "/i.jpg", Counts: &client.Counts{RBC: 5}}, nil
	})
	c := newController(page, newFakeURLs(), pred)

	first, ok := c.StartUpload()
	require.True(t, ok)
	second, ok := c.StartUpload()
	require.True(t, ok)

	second(context.Background())
	first(context.Background())

	assert.Equal(t, 1, page.countWrites, "the earlier click resolving last is dropped")
}
