package inbox

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pksalink/internal/domain"
)

var recognized = map[domain.Command]struct{}{
	domain.CmdError: {},

	domain.CmdAuthWait: {}, domain.CmdAuthAck: {}, domain.CmdAuthNack: {}, domain.CmdAuthErr: {},
	domain.CmdSignWait: {}, domain.CmdSignAck: {}, domain.CmdSignNack: {}, domain.CmdSignErr: {},
	domain.CmdChallengeWait: {}, domain.CmdChallengeAck: {}, domain.CmdChallengeNack: {}, domain.CmdChallengeErr: {},

	domain.CmdAttachAck: {}, domain.CmdAttachNack: {},
}

// Recognized reports whether the inbox retains messages of kind cmd.
func Recognized(cmd domain.Command) bool {
	_, ok := recognized[cmd]
	return ok
}

// Inbox is a pruning FIFO of relay messages, safe for one pusher and many
// takers.
type Inbox struct {
	mu   sync.Mutex
	msgs []domain.RelayMessage
	now  func() time.Time
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithClock overrides the time source used for pruning.
func WithClock(now func() time.Time) Option {
	return func(i *Inbox) { i.now = now }
}

// New returns an empty inbox.
func New(opts ...Option) *Inbox {
	i := &Inbox{now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Push appends msg when its kind is recognised and reports whether it was kept.
func (i *Inbox) Push(msg domain.RelayMessage) bool {
	if !Recognized(msg.Kind) {
		log.WithField("cmd", msg.Kind).Debug("Dropping unrecognised message")
		return false
	}
	i.mu.Lock()
	i.msgs = append(i.msgs, msg)
	i.mu.Unlock()
	return true
}

// Take removes and returns the oldest live message of kind. An empty uuid
// matches any correlation id.
func (i *Inbox) Take(kind domain.Command, uuid string) (domain.RelayMessage, bool) {
	return i.TakeFirst(uuid, kind)
}

// TakeFirst removes and returns the oldest live message whose kind is any of
// kinds and whose uuid matches (an empty uuid matches any).
func (i *Inbox) TakeFirst(uuid string, kinds ...domain.Command) (domain.RelayMessage, bool) {
	return i.take(kinds, func(m domain.RelayMessage) bool {
		return uuid == "" || m.UUID == uuid
	})
}

// TakeMatch removes and returns the oldest live message of any of kinds for
// which match reports true. The engine uses it for frames that carry no uuid
// yet, such as relay errors and wait frames, selecting them by account.
func (i *Inbox) TakeMatch(match func(domain.RelayMessage) bool, kinds ...domain.Command) (domain.RelayMessage, bool) {
	return i.take(kinds, match)
}

func (i *Inbox) take(kinds []domain.Command, match func(domain.RelayMessage) bool) (domain.RelayMessage, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.pruneLocked()
	for idx, m := range i.msgs {
		if !containsKind(kinds, m.Kind) || !match(m) {
			continue
		}
		i.msgs = append(i.msgs[:idx], i.msgs[idx+1:]...)
		return m, true
	}
	return domain.RelayMessage{}, false
}

// Len returns the number of retained messages, expired ones included.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.msgs)
}

func (i *Inbox) pruneLocked() {
	now := i.now()
	kept := i.msgs[:0]
	for _, m := range i.msgs {
		if m.Expired(now) {
			log.WithFields(logrus.Fields{"cmd": m.Kind, "uuid": m.UUID}).Debug("Pruning expired message")
			continue
		}
		kept = append(kept, m)
	}
	// Drop references held past the new length.
	for j := len(kept); j < len(i.msgs); j++ {
		i.msgs[j] = domain.RelayMessage{}
	}
	i.msgs = kept
}

func containsKind(kinds []domain.Command, k domain.Command) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

var _ domain.Inbox = (*Inbox)(nil)
