package icq

import (
	"fmt"
	"log/slog"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/expert"
	"github.com/soypat/dissect/internal"
	"github.com/soypat/dissect/ptree"
	"github.com/soypat/dissect/tvb"
)

// Server body offsets, relative to the end of the server header.
const (
	offRandUserUIN    = 0x00
	offRandUserIP     = 0x04
	offRandUserPort   = 0x08
	offRandUserRealIP = 0x0c
	offRandUserClass  = 0x10
	offRandUserStatus = 0x15
	offRandUserTCPVer = 0x19

	offOnlineUIN    = 0x00
	offOnlineIP     = 0x04
	offOnlinePort   = 0x08
	offOnlineRealIP = 0x0c
	offOnlineStatus = 0x13
	offOnlineX2     = 0x15

	offLoginReplyIP = 0x0c

	offMetaSubcmd = 0x00
	offMetaResult = 0x02
	offMetaData   = 0x03

	offRecvMsgUIN    = 0x00
	offRecvMsgYear   = 0x04
	offRecvMsgMonth  = 0x06
	offRecvMsgDay    = 0x07
	offRecvMsgHour   = 0x08
	offRecvMsgMinute = 0x09
	offRecvMsgType   = 0x0a

	offMultiNum = 0x00

	metaResultSuccess = 0x0a
	// classThroughServer is the SRV_RAND_USER class of users only reachable through the server.
	classThroughServer = 4
)

var (
	userFoundAttrs = []string{"Nick", "First name", "Last name", "Email"}
	userInfoAttrs  = []string{
		"Nick", "First name", "Last name", "Primary email", "Secondary email", "Old email",
		"City", "State", "Phone", "Fax", "Street", "Cellphone", "Zip",
	}
)

var serverLayouts = map[uint16]layoutFunc{
	srvRandUser:         layoutRandUser,
	srvSysDeliveredMess: layoutSendMessage,
	srvUserOnline:       layoutUserOnline,
	srvUserOffline:      func(c *cursor) { c.item(c.d.hf.uin, 0, 4) },
	srvLoginReply:       layoutLoginReply,
	srvMetaUser:         layoutMetaUser,
	srvRecvMessage:      layoutRecvMessage,
	srvMulti:            layoutMulti,
	srvAck:              layoutNoParams("No Parameters"),
	srvSilentTooLong:    layoutNoParams("No Parameters"),
	srvGoAway:           layoutNoParams("No Parameters"),
	srvNewUIN:           layoutNoParams("No Parameters"),
	srvBadPass:          layoutNoParams("No Parameters"),
	srvUpdateSuccess:    layoutNoParams("No Parameters"),
}

func layoutLoginReply(c *cursor) {
	c.item(c.d.hf.ip, offLoginReplyIP, 4)
	logger := c.pkt.Logger()
	if !c.ok() || !internal.LogEnabled(logger, slog.LevelDebug) {
		return
	}
	addr, err := c.buf.IPv4(c.base + offLoginReplyIP)
	if err == nil {
		ip := addr.As4()
		internal.LogAttrs(logger, slog.LevelDebug, "icq:login-reply", internal.SlogAddr4("ip", &ip))
	}
}

func layoutRandUser(c *cursor) {
	hf := &c.d.hf
	c.item(hf.uin, offRandUserUIN, 4)
	c.item(hf.ip, offRandUserIP, 4)
	c.item(hf.port, offRandUserPort, 2)
	c.item(hf.realIP, offRandUserRealIP, 4)
	class := c.u8(offRandUserClass)
	c.text(offRandUserClass, 1, "Class: %s", pick(class != classThroughServer, "User to User", "Through Server"))
	c.item(hf.status, offRandUserStatus, 4)
	c.item(hf.tcpVersion, offRandUserTCPVer, 2)
}

func layoutUserOnline(c *cursor) {
	hf := &c.d.hf
	c.item(hf.uin, offOnlineUIN, 4)
	c.item(hf.ip, offOnlineIP, 4)
	c.item(hf.port, offOnlinePort, 4)
	c.item(hf.realIP, offOnlineRealIP, 4)
	c.item(hf.status, offOnlineStatus, 2)
	c.text(offOnlineX2, 4, "Version: %08x", c.u32(offOnlineX2))
}

func layoutRecvMessage(c *cursor) {
	c.item(c.d.hf.uin, offRecvMsgUIN, 4)
	year := c.u16(offRecvMsgYear)
	month := c.u8(offRecvMsgMonth)
	day := c.u8(offRecvMsgDay)
	hour := c.u8(offRecvMsgHour)
	minute := c.u8(offRecvMsgMinute)
	c.text(offRecvMsgYear, 6, "Time: %d-%d-%d %02d:%02d", day, month, year, hour, minute)
	c.message(offRecvMsgType, c.size-offRecvMsgType)
}

func layoutMetaUser(c *cursor) {
	d := c.d
	subcmd := c.u16(offMetaSubcmd)
	subNode := c.item(d.hf.metaSubcmd, offMetaSubcmd, 2)
	if !c.ok() {
		return
	}
	subNode.Subtree = d.ett.bodyParts
	sc := c.under(subNode)
	result := sc.u8(offMetaResult)
	sc.text(offMetaResult, 1, "%s", pick(result == metaResultSuccess, "Success", "Failure"))
	rel := offMetaData
	switch subcmd {
	case metaExUserFound:
		sc.text(rel, 2, "Length: %d", sc.u16(rel))
		rel += 2
		sc.userFound(rel)
	case metaUserFound:
		sc.userFound(rel)
	case metaAbout:
		sc.attr(rel, "About")
	case metaUserInfo:
		sc.userInfo(rel)
	default:
		c.pkt.Expert.Addf(subNode, d.ei.unknownMeta, fmt.Sprintf("Unknown Meta subcmd: 0x%x", subcmd))
	}
}

func (c *cursor) userFound(rel int) {
	c.text(rel, 4, "UIN: %d", c.u32(rel))
	rel += 4
	for _, name := range userFoundAttrs {
		rel += c.attr(rel, name)
	}
	auth := c.u8(rel)
	c.text(rel, 1, "authorization: %s", pick(auth == 0x01, "Necessary", "Who needs it"))
	rel++
	c.text(rel, 2, "x2: 0x%04x", c.u16(rel))
	rel += 2
	c.text(rel, 4, "x3: 0x%08x", c.u32(rel))
}

func (c *cursor) userInfo(rel int) {
	for _, name := range userInfoAttrs {
		rel += c.attr(rel, name)
	}
	c.text(rel, 2, "Countrycode: %d", c.u16(rel))
	rel += 2
	c.text(rel, 1, "Timezone: %d", c.u8(rel))
	rel++
	for _, name := range [...]string{"Authorization", "Webaware", "HideIP"} {
		v := c.u8(rel)
		c.text(rel, 1, "%s: (%d) %s", name, v, pick(v == 0, "No", "Yes"))
		rel++
	}
}

// layoutMulti decodes SRV_MULTI_PACKET: a count of server packets, each
// prefixed by its length, dissected recursively within their own region.
func layoutMulti(c *cursor) {
	d := c.d
	num := int(c.u8(offMultiNum))
	c.item(d.hf.bundleCount, offMultiNum, 1)
	if num > 0 && c.depth+1 > d.maxDepth {
		if c.ok() {
			c.pkt.Expert.Addf(c.node, expert.DepthExceeded, fmt.Sprintf("Bundle nesting exceeds %d levels", d.maxDepth))
			internal.LogAttrs(c.pkt.Logger(), slog.LevelDebug, "icq:depth-exceeded", slog.Int("depth", c.depth))
		}
		return
	}
	rel := offMultiNum + 1
	for i := 0; i < num && c.ok(); i++ {
		lenNode := c.item(d.hf.bundleLen, rel, 2)
		if !c.ok() {
			break
		}
		sublen := int(lenNode.Value.Uint)
		rel += 2
		if sublen > c.left(rel) {
			c.fail(lenNode, &dissect.RangeErr{Offset: c.buf.AbsOffset(c.base + rel), Length: sublen, Err: dissect.ErrTruncated})
			break
		}
		sub, err := c.buf.Subset(c.base+rel, sublen)
		if err != nil {
			c.fail(lenNode, err)
			break
		}
		pktNode := c.pkt.Tree.AddSubtree(c.node, d.ett.bundle, c.buf, c.base+rel, sublen, "Packet %d", i+1)
		d.dissectServer(sub, &walk{d: d, pkt: c.pkt, depth: c.depth + 1}, pktNode)
		rel += sublen
	}
}

// dissectServer decodes the server packet held by buf under parent. It is
// called for top level frames and for every packet of a bundle.
func (d *Dissector) dissectServer(buf *tvb.Buffer, w *walk, parent *ptree.Node) {
	pkt := w.pkt
	c := w.cursor(buf, parent)
	hdr := c.subtree(d.ett.header, 0, sizeServerHeader, "Header")
	if n, err := pkt.Tree.AddBool(hdr.node, d.hf.client, buf, 0, 0, false); err == nil {
		n.SetGenerated()
	}
	hdr.item(d.hf.version, offVersion, 2)
	hdr.item(d.hf.sessionID, offServerSessionID, 4)
	cmdNode := hdr.item(d.hf.serverCmd, offServerCmd, 2)
	hdr.item(d.hf.seq1, offServerSeq1, 2)
	hdr.item(d.hf.seq2, offServerSeq2, 2)
	hdr.item(d.hf.uin, offServerUIN, 4)
	hdr.item(d.hf.checkcode, offServerCheckcode, 4)
	if cmdNode == nil {
		return
	}
	cmd := uint16(cmdNode.Value.Uint)
	if w.depth == 0 {
		pkt.SetInfo("ICQv5 %s", CommandName(RoleServer, cmd))
	}
	if !hdr.ok() {
		return
	}
	bodyLen := buf.ReportedLen() - sizeServerHeader
	body := c.subtree(d.ett.body, sizeServerHeader, bodyLen, "Body").at(sizeServerHeader, bodyLen)
	d.logCommand(w, RoleServer, cmd)
	layout, ok := d.server[cmd]
	if !ok {
		pkt.Expert.Add(cmdNode, d.ei.unknownCommand)
		return
	}
	if layout != nil {
		layout(&body)
	}
}
