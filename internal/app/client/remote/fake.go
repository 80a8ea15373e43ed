package remote

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"reportsync/internal/domain/report"
)

// Fake is an in-memory Backend that honors the upsert contract. Failures can
// be scripted per call, per client id or per attachment id.
type Fake struct {
	mu sync.Mutex

	reports  map[string]*report.Report // by client id
	byRemote map[string]string         // remote id -> client id
	media    map[string]map[string]report.Media

	calls       int
	createCalls map[string]int
	uploadCalls map[string]int

	down           error
	next           []error
	createFailures map[string][]error
	uploadFailures map[string][]error

	// OnCreate, when set, runs before every CreateReport outside the lock.
	OnCreate func(clientID string)
}

func NewFake() *Fake {
	return &Fake{
		reports:        make(map[string]*report.Report),
		byRemote:       make(map[string]string),
		media:          make(map[string]map[string]report.Media),
		createCalls:    make(map[string]int),
		uploadCalls:    make(map[string]int),
		createFailures: make(map[string][]error),
		uploadFailures: make(map[string][]error),
	}
}

// SetDown makes every call fail with err until it is called with nil.
func (f *Fake) SetDown(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = err
}

// FailNext makes the next len(errs) calls fail in order.
func (f *Fake) FailNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = append(f.next, errs...)
}

func (f *Fake) FailCreate(clientID string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createFailures[clientID] = append(f.createFailures[clientID], errs...)
}

func (f *Fake) FailUpload(attachmentID string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadFailures[attachmentID] = append(f.uploadFailures[attachmentID], errs...)
}

func (f *Fake) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return report.Network(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func (f *Fake) CreateReport(ctx context.Context, clientID string, p report.Payload) (string, error) {
	if f.OnCreate != nil {
		f.OnCreate(clientID)
	}
	if err := ctx.Err(); err != nil {
		return "", report.Network(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.createCalls[clientID]++
	if err := f.scripted(f.createFailures, clientID); err != nil {
		return "", err
	}

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return "", err
	}

	if r, ok := f.reports[clientID]; ok {
		return r.ID, nil
	}

	now := time.Now().UTC()
	r := &report.Report{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Title:     p.Title(),
		Payload:   p,
		Status:    report.StatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.reports[clientID] = r
	f.byRemote[r.ID] = clientID
	return r.ID, nil
}

func (f *Fake) UploadAttachment(ctx context.Context, remoteID string, a report.Attachment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", report.Network(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.uploadCalls[a.ID]++
	if err := f.scripted(f.uploadFailures, a.ID); err != nil {
		return "", err
	}

	clientID, ok := f.byRemote[remoteID]
	if !ok {
		return "", report.Backend("report "+remoteID+" not found", report.ErrNotFound)
	}

	a.Prepare()
	if err := a.Validate(); err != nil {
		return "", err
	}

	path := report.MediaPath(remoteID, a)
	if f.media[remoteID] == nil {
		f.media[remoteID] = make(map[string]report.Media)
	}
	f.media[remoteID][a.ID] = report.Media{
		ReportID:     remoteID,
		AttachmentID: a.ID,
		Path:         path,
		Filename:     a.Filename,
		ContentType:  a.ContentType,
		Size:         a.Size(),
		Checksum:     a.Checksum,
		CreatedAt:    time.Now().UTC(),
	}
	f.reports[clientID].MediaCount = len(f.media[remoteID])
	return path, nil
}

func (f *Fake) ListReports(ctx context.Context) ([]report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, report.Network(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.down != nil {
		return nil, f.down
	}
	return f.sortedReports(), nil
}

// scripted pops the next failure for the call. Caller holds f.mu.
func (f *Fake) scripted(perKey map[string][]error, key string) error {
	if f.down != nil {
		return f.down
	}
	if len(f.next) > 0 {
		err := f.next[0]
		f.next = f.next[1:]
		return err
	}
	if errs := perKey[key]; len(errs) > 0 {
		perKey[key] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *Fake) sortedReports() []report.Report {
	out := make([]report.Report, 0, len(f.reports))
	for _, r := range f.reports {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Calls is the number of create, upload and list calls received.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) CreateCalls(clientID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls[clientID]
}

func (f *Fake) UploadCalls(attachmentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCalls[attachmentID]
}

func (f *Fake) Reports() []report.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedReports()
}

func (f *Fake) Report(clientID string) (report.Report, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[clientID]
	if !ok {
		return report.Report{}, false
	}
	return *r, true
}

func (f *Fake) Media(remoteID string) []report.Media {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]report.Media, 0, len(f.media[remoteID]))
	for _, m := range f.media[remoteID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttachmentID < out[j].AttachmentID })
	return out
}
