package services

import "vanish-chat/domain"

// Composer holds the pending text of the message input. Submit clears
// the text only when the store acknowledged the create, so a failed
// submission leaves the draft in place for a manual retry.
type Composer struct {
	chat    IChatService
	pending string
	vanish  bool
}

func NewComposer(chat IChatService) *Composer {
	return &Composer{chat: chat}
}

func (c *Composer) SetText(text string) {
	c.pending = text
}

func (c *Composer) Text() string {
	return c.pending
}

// ToggleVanish flips the vanish flag and returns the new state.
func (c *Composer) ToggleVanish() bool {
	c.vanish = !c.vanish
	return c.vanish
}

func (c *Composer) VanishEnabled() bool {
	return c.vanish
}

// Submit sends the pending text. On success the draft is cleared; on
// any error (validation or store) it is preserved.
func (c *Composer) Submit(session domain.Session) (domain.Message, error) {
	msg, err := c.chat.PostMessage(session, c.pending, c.vanish)
	if err != nil {
		return domain.Message{}, err
	}
	c.pending = ""
	return msg, nil
}
