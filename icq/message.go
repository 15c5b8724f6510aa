package icq

import (
	"fmt"
)

var (
	urlFields       = []string{"Description", "URL"}
	userAddedFields = []string{"Nickname", "First name", "Last name", "Email address"}
	emailFields     = []string{"Nickname", "First name", "Last name", "Email address", "Unknown", "Text"}
	authReqFields   = []string{"Nickname", "First name", "Last name", "Email address", "Unknown", "Reason"}
)

// message decodes the message body shared by CMD_SEND_MESSAGE,
// SRV_SYS_DELIVERED_MESS and SRV_RECV_MESSAGE. It spans size bytes from rel.
func (c *cursor) message(rel, size int) {
	d := c.d
	msgType := c.u16(rel)
	if !c.ok() {
		return
	}
	sub := c.subtree(d.ett.bodyParts, rel, size, "%s Message", msgTypeVals.LabelOr(uint64(msgType), ""))
	typeNode := sub.item(d.hf.msgType, rel, 2)
	rel += 2
	left := size - 2
	if msgType != msgAuth {
		sub.text(rel, 2, "Length: %d", sub.u16(rel))
		rel += 2
		left -= 2
	}
	switch msgType {
	case msgNone:
	case msgText:
		if left > 0 {
			sub.text(rel, left, "Msg: %s", cstring(sub.bytes(rel, left)))
		}
	case msgURL:
		sub.delimited(rel, left, urlFields)
	case msgEmail:
		sub.delimited(rel, left, emailFields)
	case msgAuthReq:
		sub.delimited(rel, left, authReqFields)
	case msgUserAdded:
		sub.delimited(rel, left, userAddedFields)
	case msgAuth:
		auth := sub.u8(rel)
		sub.text(rel, 1, "Authorization: (%d) %s", auth, pick(auth == 0, "Denied", "Allowed"))
		sub.text(rel+1, 2, "x1: 0x%04x", sub.u16(rel+1))
	case msgContacts:
		sub.contacts(rel, left)
	default:
		if typeNode != nil {
			c.pkt.Expert.Addf(typeNode, d.ei.unknownCommand, fmt.Sprintf("Unknown msgType: %d (0x%x)", msgType, msgType))
		}
	}
}

// contacts decodes a MSG_CONTACTS run: the amount of pairs followed by
// nickname and UIN pairs, all separator terminated text.
func (c *cursor) contacts(rel, left int) {
	token := func(rel, left int) int {
		if left <= 0 {
			return 0
		}
		sep := c.buf.FindByte(c.base+rel, left, separator)
		if sep < 0 {
			return left
		}
		return sep - (c.base + rel) + 1
	}
	sz := token(rel, left)
	if sz == 0 {
		c.text(rel, 0, "Number of pairs: (empty)")
		return
	}
	c.text(rel, sz, "Number of pairs: %s", cstring(c.bytes(rel, sz)))
	rel += sz
	left -= sz
	for left > 0 && c.ok() {
		nickSz := token(rel, left)
		uinSz := token(rel+nickSz, left-nickSz)
		nick := cstring(c.bytes(rel, nickSz))
		if uinSz == 0 {
			c.text(rel, nickSz, "%s: (empty)", nick)
		} else {
			c.text(rel, nickSz+uinSz, "%s: %s", nick, cstring(c.bytes(rel+nickSz, uinSz)))
		}
		rel += nickSz + uinSz
		left -= nickSz + uinSz
	}
}

func pick[T any](cond bool, ifTrue, ifFalse T) T {
	if cond {
		return ifTrue
	}
	return ifFalse
}
