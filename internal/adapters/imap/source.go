package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
)

// ErrInvalidID is returned for external ids this source did not produce
var ErrInvalidID = errors.New("invalid message id")

// Source is an IMAP implementation of core.MailSource. Message ids have
// the form mailbox:uidvalidity:uid.
type Source struct {
	cfg    config.MailConfig
	logger *zap.Logger

	mu     sync.Mutex
	client *client.Client
}

// NewSource creates a mail source. The connection is opened on first use.
func NewSource(cfg config.MailConfig, logger *zap.Logger) *Source {
	return &Source{
		cfg:    cfg,
		logger: logger,
	}
}

// Close logs out of the server
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Logout()
	s.client = nil
	return err
}

// ListMessages returns summaries matching q, newest first, capped at the page size
func (s *Source) ListMessages(ctx context.Context, q core.MailQuery) ([]core.MessageSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mailbox := q.Mailbox
	if mailbox == "" {
		mailbox = s.cfg.Mailbox
	}

	c, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	mbox, err := c.Select(mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", mailbox, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	uids, err := c.UidSearch(searchCriteria(q))
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox %s: %w", mailbox, err)
	}
	s.logger.Debug("Mailbox searched",
		zap.String("mailbox", mailbox),
		zap.Int("matches", len(uids)))
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uids...)
	items := []goimap.FetchItem{
		goimap.FetchEnvelope,
		goimap.FetchUid,
		goimap.FetchInternalDate,
		goimap.FetchBodyStructure,
	}

	messages := make(chan *goimap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var out []core.MessageSummary
	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}
		if !inRange(q, msg.InternalDate) {
			continue
		}
		out = append(out, summarize(msg, mailbox, mbox.UidValidity))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	if s.cfg.PageSize > 0 && len(out) > s.cfg.PageSize {
		out = out[:s.cfg.PageSize]
	}
	return out, nil
}

// GetMessageDetail fetches the full message. The mailbox encoded in the id
// wins over the mailbox argument.
func (s *Source) GetMessageDetail(ctx context.Context, externalID, mailbox string) (*core.MessageDetail, error) {
	idMailbox, validity, uid, err := ParseID(externalID)
	if err != nil {
		return nil, err
	}
	if idMailbox != "" {
		mailbox = idMailbox
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	mbox, err := c.Select(mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", mailbox, err)
	}
	if mbox.UidValidity != validity {
		return nil, fmt.Errorf("mailbox %s uid validity changed from %d to %d", mailbox, validity, mbox.UidValidity)
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uid)
	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{
		goimap.FetchEnvelope,
		goimap.FetchUid,
		goimap.FetchInternalDate,
		goimap.FetchBodyStructure,
		section.FetchItem(),
	}

	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var found *goimap.Message
	for msg := range messages {
		if msg != nil && msg.Uid == uid {
			found = msg
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", externalID, err)
	}
	if found == nil || found.Envelope == nil {
		return nil, fmt.Errorf("message %s not found", externalID)
	}

	detail := &core.MessageDetail{
		MessageSummary: summarize(found, mailbox, mbox.UidValidity),
		Recipients:     recipients(found.Envelope),
	}
	if r := found.GetBody(section); r != nil {
		body, err := ParseBody(r)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message %s: %w", externalID, err)
		}
		detail.TextBody = body.Text
		detail.HTMLBody = body.HTML
		detail.HasAttachments = detail.HasAttachments || body.HasAttachments
	}
	return detail, nil
}

// session returns a logged in client, reconnecting when the previous one dropped.
// Callers hold s.mu.
func (s *Source) session(ctx context.Context) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.client != nil {
		if s.client.State()&goimap.AuthenticatedState != 0 {
			return s.client, nil
		}
		_ = s.client.Terminate()
		s.client = nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server, s.cfg.Port)
	s.logger.Debug("Connecting to IMAP server", zap.String("address", addr))

	var (
		c   *client.Client
		err error
	)
	if s.cfg.TLS {
		c, err = client.DialTLS(addr, &tls.Config{ServerName: s.cfg.Server})
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	c.Timeout = s.cfg.Timeout

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	s.logger.Info("Connected to IMAP server",
		zap.String("address", addr),
		zap.String("username", s.cfg.Username))
	s.client = c
	return c, nil
}

// FormatID builds the external id of a message
func FormatID(mailbox string, validity, uid uint32) string {
	return mailbox + ":" + strconv.FormatUint(uint64(validity), 10) + ":" + strconv.FormatUint(uint64(uid), 10)
}

// ParseID splits an external id. Mailbox names may contain colons.
func ParseID(id string) (mailbox string, validity, uid uint32, err error) {
	i := strings.LastIndex(id, ":")
	if i <= 0 {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	j := strings.LastIndex(id[:i], ":")
	if j < 0 {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	v, err := strconv.ParseUint(id[j+1:i], 10, 32)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	u, err := strconv.ParseUint(id[i+1:], 10, 32)
	if err != nil || u == 0 {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id[:j], uint32(v), uint32(u), nil
}

// searchCriteria widens the query to whole days with one day of slack on
// each side. SINCE and BEFORE compare dates in the server's time zone, which
// can differ from ours; inRange applies the exact bounds afterwards.
func searchCriteria(q core.MailQuery) *goimap.SearchCriteria {
	criteria := goimap.NewSearchCriteria()
	since := q.Since
	if since.IsZero() {
		since = q.From
	}
	if !since.IsZero() {
		criteria.Since = truncateDay(since).AddDate(0, 0, -1)
	}
	if !q.To.IsZero() {
		criteria.Before = truncateDay(q.To).AddDate(0, 0, 2)
	}
	return criteria
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func inRange(q core.MailQuery, received time.Time) bool {
	switch {
	case !q.Since.IsZero() && received.Before(q.Since):
		return false
	case !q.From.IsZero() && received.Before(q.From):
		return false
	case !q.To.IsZero() && received.After(q.To):
		return false
	}
	return true
}

func summarize(msg *goimap.Message, mailbox string, validity uint32) core.MessageSummary {
	env := msg.Envelope
	s := core.MessageSummary{
		ExternalID:        FormatID(mailbox, validity, msg.Uid),
		InternetMessageID: env.MessageId,
		Subject:           env.Subject,
		ReceivedAt:        msg.InternalDate,
		HasAttachments:    hasAttachments(msg.BodyStructure),
		Mailbox:           mailbox,
	}
	if s.ReceivedAt.IsZero() {
		s.ReceivedAt = env.Date
	}
	if len(env.From) > 0 && env.From[0] != nil {
		s.SenderAddress = strings.ToLower(env.From[0].Address())
		s.SenderName = env.From[0].PersonalName
	}
	return s
}

func recipients(env *goimap.Envelope) []string {
	var out []string
	for _, list := range [][]*goimap.Address{env.To, env.Cc} {
		for _, a := range list {
			if a != nil && a.MailboxName != "" {
				out = append(out, a.Address())
			}
		}
	}
	return out
}

func hasAttachments(bs *goimap.BodyStructure) bool {
	if bs == nil {
		return false
	}
	if strings.EqualFold(bs.Disposition, "attachment") {
		return true
	}
	for _, part := range bs.Parts {
		if hasAttachments(part) {
			return true
		}
	}
	return false
}
