package icq

import (
	"github.com/soypat/dissect/ptree"
	"github.com/soypat/dissect/tvb"
)

// Client body offsets, relative to the end of the client header.
const (
	offLoginTime    = 0x00
	offLoginPort    = 0x04
	offLoginPassLen = 0x08
	offLoginPasswd  = 0x0a
	// IP and status follow the password at these distances.
	offLoginIP     = 0x04
	offLoginStatus = 0x09

	offSendMsgRecvUIN = 0x00
	offSendMsgType    = 0x04
)

// layoutFunc decodes the parameters of one command. The cursor is positioned
// at the start of the command's body.
type layoutFunc func(c *cursor)

var clientLayouts = map[uint16]layoutFunc{
	cmdAck:          func(c *cursor) { c.item(c.d.hf.ackRandom, 0, 4) },
	cmdSendMsg:      layoutSendMessage,
	cmdMsgToNewUser: layoutSendMessage,
	cmdRandSearch:   func(c *cursor) { c.item(c.d.hf.group, 0, 4) },
	cmdLogin:        layoutLogin,
	cmdSendTextCode: layoutSendTextCode,
	cmdStatusChange: func(c *cursor) { c.item(c.d.hf.status, 0, 4) },
	cmdAckMessages:  func(c *cursor) { c.item(c.d.hf.ackRandom, 0, 4) },
	cmdKeepAlive:    func(c *cursor) { c.item(c.d.hf.keepAlive, 0, 4) },
	cmdAddToList:    func(c *cursor) { c.item(c.d.hf.uin, 0, 4) },
	cmdContactList:  layoutContactList,
	cmdMetaUser:     layoutNoParams("No parameters"),
	cmdRegNewUser:   layoutNoParams("No parameters"),
	cmdQueryServers: layoutNoParams("No parameters"),
	cmdQueryAddons:  layoutNoParams("No parameters"),
}

func layoutNoParams(text string) layoutFunc {
	return func(c *cursor) { c.text(0, 0, "%s", text) }
}

// layoutSendMessage is shared by client messages and SRV_SYS_DELIVERED_MESS.
func layoutSendMessage(c *cursor) {
	c.item(c.d.hf.receiverUIN, offSendMsgRecvUIN, 4)
	c.message(offSendMsgType, c.size-offSendMsgType)
}

func layoutLogin(c *cursor) {
	hf := &c.d.hf
	c.item(hf.loginTime, offLoginTime, 4)
	c.item(hf.port, offLoginPort, 4)
	passLen := int(c.u16(offLoginPassLen))
	if !c.ok() {
		return
	}
	if _, err := c.buf.CheckLength(c.base+offLoginPasswd, passLen); err != nil {
		n := c.text(offLoginPassLen, 2, "Passwd: length exceeds packet")
		c.fail(n, err)
		return
	}
	passwd := cstring(c.bytes(offLoginPasswd, passLen))
	if c.ok() {
		_, err := c.pkt.Tree.AddString(c.node, hf.password, c.buf, c.base+offLoginPassLen, 2+passLen, passwd)
		if err != nil {
			c.fail(nil, err)
		}
	}
	end := offLoginPasswd + passLen
	c.item(hf.ip, end+offLoginIP, 4)
	c.item(hf.status, end+offLoginStatus, 4)
}

func layoutSendTextCode(c *cursor) {
	length := int(c.u16(0))
	c.text(0, 2, "Length: %d", length)
	if !c.ok() {
		return
	}
	if _, err := c.buf.CheckLength(c.base+2, length); err != nil {
		c.fail(nil, err)
		return
	}
	if length > 0 {
		c.text(2, length, "Text: %s", cstring(c.bytes(2, length)))
	}
	c.text(2+length, 2, "X1: 0x%04x", c.u16(2+length))
}

func layoutContactList(c *cursor) {
	num := int(c.u8(0))
	c.text(0, 1, "Number of uins: %d", num)
	for i := 0; i < num && c.ok(); i++ {
		rel := 1 + 4*i
		c.text(rel, 4, "UIN[%d]: %d", i, c.u32(rel))
	}
}

// dissectClient decodes an encrypted client packet under top.
func (d *Dissector) dissectClient(buf *tvb.Buffer, w *walk, top *ptree.Node) {
	pkt := w.pkt
	c := w.cursor(buf, top)
	hdr := c.subtree(d.ett.header, 0, sizeClientHeader, "Header")
	if n, err := pkt.Tree.AddBool(hdr.node, d.hf.client, buf, 0, 0, true); err == nil {
		n.SetGenerated()
	}
	hdr.item(d.hf.version, offVersion, 2)
	hdr.item(d.hf.uin, offClientUIN, 4)
	if !hdr.ok() {
		return
	}
	dec, err := Decrypt(buf)
	if err != nil {
		hdr.fail(nil, err)
		return
	}
	pkt.AddDataSource(dec)
	plain := hdr.with(dec)
	plain.item(d.hf.sessionID, offClientSessionID, 4)
	cmdNode := plain.item(d.hf.clientCmd, offClientCmd, 2)
	plain.item(d.hf.seq1, offClientSeq1, 2)
	plain.item(d.hf.seq2, offClientSeq2, 2)
	ccNode := hdr.item(d.hf.checkcode, offClientCheckcode, 4)
	if !hdr.ok() {
		return
	}
	cmd := uint16(cmdNode.Value.Uint)
	pkt.SetInfo("ICQv5 %s", CommandName(RoleClient, cmd))
	key := Key(uint32(ccNode.Value.Uint), buf.ReportedLen())
	if n, err := pkt.Tree.AddUint(hdr.node, d.hf.checkcodeKey, buf, offClientCheckcode, 4, uint64(key)); err == nil {
		n.SetGenerated()
	}

	bodyLen := dec.ReportedLen() - sizeClientHeader
	body := c.with(dec).subtree(d.ett.body, sizeClientHeader, bodyLen, "Body").at(sizeClientHeader, bodyLen)
	d.logCommand(w, RoleClient, cmd)
	layout, ok := d.client[cmd]
	if !ok {
		pkt.Expert.Add(cmdNode, d.ei.unknownCommand)
		return
	}
	if layout != nil {
		layout(&body)
	}
}
