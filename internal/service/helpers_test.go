package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"regexp"
	"sync"
	"testing"

	"securegate/internal/db/dbtest"
	"securegate/internal/store"
	"securegate/internal/utils"

	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

// fileHeader builds a real multipart file header for field/name with content
func fileHeader(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File[field][0]
}

type sentMail struct {
	to, subject, html string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	match := tokenPattern.FindStringSubmatch(m.sent[len(m.sent)-1].html)
	require.Len(t, match, 2)
	return match[1]
}

type fakeFiles struct {
	mu        sync.Mutex
	n         int
	saved     []string
	removed   []string
	saveErr   error
	removeErr error
}

func (f *fakeFiles) Save(field string, fh *multipart.FileHeader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.n++
	p := fmt.Sprintf("%s%s-%d-%s", utils.UploadPrefix, field, f.n, fh.Filename)
	f.saved = append(f.saved, p)
	return p, nil
}

func (f *fakeFiles) Remove(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, p)
	return f.removeErr
}

var errBoom = errors.New("boom")

type fakeRevoker struct {
	mu      sync.Mutex
	revoked []uint
}

func (r *fakeRevoker) RevokeUser(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = append(r.revoked, userID)
	return nil
}

func newUserStore(t *testing.T) *store.UserStore {
	return store.NewUserStore(dbtest.Open(t))
}
