package icq

import (
	"github.com/soypat/dissect"
	"github.com/soypat/dissect/dispatch"
	"github.com/soypat/dissect/expert"
	"github.com/soypat/dissect/field"
)

// Client command codes.
const (
	cmdAck           = 0x000a
	cmdSendMsg       = 0x010e
	cmdLogin         = 0x03e8
	cmdRegNewUser    = 0x03fc
	cmdContactList   = 0x0406
	cmdKeepAlive     = 0x042e
	cmdSendTextCode  = 0x0438
	cmdAckMessages   = 0x0442
	cmdMsgToNewUser  = 0x0456
	cmdQueryServers  = 0x04ba
	cmdQueryAddons   = 0x04c4
	cmdStatusChange  = 0x04d8
	cmdAddToList     = 0x053c
	cmdRandSearch    = 0x056e
	cmdMetaUser      = 0x064a
	cmdSearchUIN     = 1050
	cmdSearchUser    = 1060
	cmdLogin1        = 1100
	cmdInfoReq       = 1120
	cmdExtInfoReq    = 1130
	cmdChangePW      = 1180
	cmdNewUserInfo   = 1190
	cmdUpdateExtInfo = 1200
	cmdNewUser1      = 1260
	cmdUpdateInfo    = 1290
	cmdAuthUpdate    = 1300
	cmdKeepAlive2    = 1310
	cmdLogin2        = 1320
	cmdRandSet       = 1380
	cmdInvisList     = 1700
	cmdVisList       = 1710
	cmdUpdateList    = 1720
)

// Server command codes.
const (
	srvAck                 = 0x000a
	srvSilentTooLong       = 0x001e
	srvGoAway              = 0x0028
	srvNewUIN              = 0x0046
	srvLoginReply          = 0x005a
	srvBadPass             = 0x0064
	srvUserOnline          = 0x006e
	srvUserOffline         = 0x0078
	srvQuery               = 130
	srvUserFound           = 140
	srvEndOfSearch         = 160
	srvNewUser             = 180
	srvUpdateExt           = 200
	srvRecvMessage         = 0x00dc
	srvEndOfflineMessages  = 230
	srvNotConnected        = 240
	srvTryAgain            = 250
	srvSysDeliveredMess    = 0x0104
	srvInfoReply           = 280
	srvExtInfoReply        = 290
	srvStatusUpdate        = 420
	srvSystemMessage       = 450
	srvUpdateSuccess       = 0x01e0
	srvUpdateFail          = 0x01ea
	srvAuthUpdate          = 500
	srvMulti               = 0x0212
	srvEndContactStatus    = 540
	srvRandUser            = 0x024e
	srvMetaUser            = 0x03de
)

// SRV_META_USER subcommands.
const (
	metaAbout       = 0x00e6
	metaUserInfo    = 0x00c8
	metaExUserFound = 0x0190
	metaUserFound   = 0x019a
)

// Message types.
const (
	msgText      = 0x0001
	msgURL       = 0x0004
	msgAuthReq   = 0x0006
	msgAuth      = 0x0008
	msgUserAdded = 0x000c
	msgEmail     = 0x000e
	msgContacts  = 0x0013
	msgNone      = 0xffff
)

// Status codes.
const (
	statusOnline    = 0x00000000
	statusAway      = 0x00000001
	statusNA        = 0x00000004
	statusOccupied  = 0x00000010
	statusDND       = 0x00000013
	statusChat      = 0x00000020
	statusInvisible = 0x00000100
)

var clientCmdVals = field.NewValueStrings(
	field.ValueString{Value: cmdAck, Label: "CMD_ACK"},
	field.ValueString{Value: cmdSendMsg, Label: "CMD_SEND_MESSAGE"},
	field.ValueString{Value: cmdLogin, Label: "CMD_LOGIN"},
	field.ValueString{Value: cmdRegNewUser, Label: "CMD_REG_NEW_USER"},
	field.ValueString{Value: cmdContactList, Label: "CMD_CONTACT_LIST"},
	field.ValueString{Value: cmdSearchUIN, Label: "CMD_SEARCH_UIN"},
	field.ValueString{Value: cmdSearchUser, Label: "CMD_SEARCH_USER"},
	field.ValueString{Value: cmdKeepAlive, Label: "CMD_KEEP_ALIVE"},
	field.ValueString{Value: cmdSendTextCode, Label: "CMD_SEND_TEXT_CODE"},
	field.ValueString{Value: cmdAckMessages, Label: "CMD_ACK_MESSAGES"},
	field.ValueString{Value: cmdLogin1, Label: "CMD_LOGIN_1"},
	field.ValueString{Value: cmdMsgToNewUser, Label: "CMD_MSG_TO_NEW_USER"},
	field.ValueString{Value: cmdInfoReq, Label: "CMD_INFO_REQ"},
	field.ValueString{Value: cmdExtInfoReq, Label: "CMD_EXT_INFO_REQ"},
	field.ValueString{Value: cmdChangePW, Label: "CMD_CHANGE_PW"},
	field.ValueString{Value: cmdNewUserInfo, Label: "CMD_NEW_USER_INFO"},
	field.ValueString{Value: cmdUpdateExtInfo, Label: "CMD_UPDATE_EXT_INFO"},
	field.ValueString{Value: cmdQueryServers, Label: "CMD_QUERY_SERVERS"},
	field.ValueString{Value: cmdQueryAddons, Label: "CMD_QUERY_ADDONS"},
	field.ValueString{Value: cmdStatusChange, Label: "CMD_STATUS_CHANGE"},
	field.ValueString{Value: cmdNewUser1, Label: "CMD_NEW_USER_1"},
	field.ValueString{Value: cmdUpdateInfo, Label: "CMD_UPDATE_INFO"},
	field.ValueString{Value: cmdAuthUpdate, Label: "CMD_AUTH_UPDATE"},
	field.ValueString{Value: cmdKeepAlive2, Label: "CMD_KEEP_ALIVE2"},
	field.ValueString{Value: cmdLogin2, Label: "CMD_LOGIN_2"},
	field.ValueString{Value: cmdAddToList, Label: "CMD_ADD_TO_LIST"},
	field.ValueString{Value: cmdRandSet, Label: "CMD_RAND_SET"},
	field.ValueString{Value: cmdRandSearch, Label: "CMD_RAND_SEARCH"},
	field.ValueString{Value: cmdMetaUser, Label: "CMD_META_USER"},
	field.ValueString{Value: cmdInvisList, Label: "CMD_INVIS_LIST"},
	field.ValueString{Value: cmdVisList, Label: "CMD_VIS_LIST"},
	field.ValueString{Value: cmdUpdateList, Label: "CMD_UPDATE_LIST"},
)

var serverCmdVals = field.NewValueStrings(
	field.ValueString{Value: srvAck, Label: "SRV_ACK"},
	field.ValueString{Value: srvSilentTooLong, Label: "SRV_SILENT_TOO_LONG"},
	field.ValueString{Value: srvGoAway, Label: "SRV_GO_AWAY"},
	field.ValueString{Value: srvNewUIN, Label: "SRV_NEW_UIN"},
	field.ValueString{Value: srvLoginReply, Label: "SRV_LOGIN_REPLY"},
	field.ValueString{Value: srvBadPass, Label: "SRV_BAD_PASS"},
	field.ValueString{Value: srvUserOnline, Label: "SRV_USER_ONLINE"},
	field.ValueString{Value: srvUserOffline, Label: "SRV_USER_OFFLINE"},
	field.ValueString{Value: srvQuery, Label: "SRV_QUERY"},
	field.ValueString{Value: srvUserFound, Label: "SRV_USER_FOUND"},
	field.ValueString{Value: srvEndOfSearch, Label: "SRV_END_OF_SEARCH"},
	field.ValueString{Value: srvNewUser, Label: "SRV_NEW_USER"},
	field.ValueString{Value: srvUpdateExt, Label: "SRV_UPDATE_EXT"},
	field.ValueString{Value: srvRecvMessage, Label: "SRV_RECV_MESSAGE"},
	field.ValueString{Value: srvEndOfflineMessages, Label: "SRV_END_OFFLINE_MESSAGES"},
	field.ValueString{Value: srvNotConnected, Label: "SRV_NOT_CONNECTED"},
	field.ValueString{Value: srvTryAgain, Label: "SRV_TRY_AGAIN"},
	field.ValueString{Value: srvSysDeliveredMess, Label: "SRV_SYS_DELIVERED_MESS"},
	field.ValueString{Value: srvInfoReply, Label: "SRV_INFO_REPLY"},
	field.ValueString{Value: srvExtInfoReply, Label: "SRV_EXT_INFO_REPLY"},
	field.ValueString{Value: srvStatusUpdate, Label: "SRV_STATUS_UPDATE"},
	field.ValueString{Value: srvSystemMessage, Label: "SRV_SYSTEM_MESSAGE"},
	field.ValueString{Value: srvUpdateSuccess, Label: "SRV_UPDATE_SUCCESS"},
	field.ValueString{Value: srvUpdateFail, Label: "SRV_UPDATE_FAIL"},
	field.ValueString{Value: srvAuthUpdate, Label: "SRV_AUTH_UPDATE"},
	field.ValueString{Value: srvMulti, Label: "SRV_MULTI_PACKET"},
	field.ValueString{Value: srvEndContactStatus, Label: "SRV_END_CONTACTLIST_STATUS"},
	field.ValueString{Value: srvRandUser, Label: "SRV_RAND_USER"},
	field.ValueString{Value: srvMetaUser, Label: "SRV_META_USER"},
)

var metaSubcmdVals = field.NewValueStrings(
	field.ValueString{Value: metaUserFound, Label: "META_USER_FOUND"},
	field.ValueString{Value: metaExUserFound, Label: "META_EX_USER_FOUND"},
	field.ValueString{Value: metaAbout, Label: "META_ABOUT"},
	field.ValueString{Value: metaUserInfo, Label: "META_USER_INFO"},
)

var msgTypeVals = field.NewValueStrings(
	field.ValueString{Value: msgText, Label: "MSG_TEXT"},
	field.ValueString{Value: msgURL, Label: "MSG_URL"},
	field.ValueString{Value: msgAuthReq, Label: "MSG_AUTH_REQ"},
	field.ValueString{Value: msgAuth, Label: "MSG_AUTH"},
	field.ValueString{Value: msgUserAdded, Label: "MSG_USER_ADDED"},
	field.ValueString{Value: msgEmail, Label: "MSG_EMAIL"},
	field.ValueString{Value: msgContacts, Label: "MSG_CONTACTS"},
)

var statusVals = field.NewValueStrings(
	field.ValueString{Value: statusOnline, Label: "ONLINE"},
	field.ValueString{Value: statusAway, Label: "AWAY"},
	field.ValueString{Value: statusDND, Label: "DND"},
	field.ValueString{Value: statusInvisible, Label: "INVISIBLE"},
	field.ValueString{Value: statusOccupied, Label: "OCCUPIED"},
	field.ValueString{Value: statusNA, Label: "NA"},
	field.ValueString{Value: statusChat, Label: "Free for Chat"},
)

var groupVals = field.NewValueStrings(
	field.ValueString{Value: 1, Label: "Name"},
	field.ValueString{Value: 2, Label: "General"},
	field.ValueString{Value: 3, Label: "Romance"},
	field.ValueString{Value: 4, Label: "Games"},
	field.ValueString{Value: 5, Label: "Students"},
	field.ValueString{Value: 6, Label: "20 Something"},
	field.ValueString{Value: 7, Label: "30 Something"},
	field.ValueString{Value: 8, Label: "40 Something"},
	field.ValueString{Value: 9, Label: "50 or worse"},
	field.ValueString{Value: 10, Label: "Man want women"},
	field.ValueString{Value: 11, Label: "Women want men"},
)

// CommandName returns the name of a command code sent by role.
func CommandName(role Role, cmd uint16) string {
	if role == RoleClient {
		return clientCmdVals.LabelOr(uint64(cmd), "")
	}
	return serverCmdVals.LabelOr(uint64(cmd), "")
}

type fieldIDs struct {
	version      field.ID
	client       field.ID
	msgType      field.ID
	uin          field.ID
	sessionID    field.ID
	clientCmd    field.ID
	serverCmd    field.ID
	checkcode    field.ID
	checkcodeKey field.ID
	seq1         field.ID
	seq2         field.ID
	group        field.ID
	ackRandom    field.ID
	keepAlive    field.ID
	status       field.ID
	metaSubcmd   field.ID
	receiverUIN  field.ID
	ip           field.ID
	realIP       field.ID
	port         field.ID
	loginTime    field.ID
	password     field.ID
	tcpVersion   field.ID
	bundleCount  field.ID
	bundleLen    field.ID
}

type subtreeIDs struct {
	icq, header, body, bodyParts, bundle field.SubtreeID
}

type expertInfos struct {
	unknownCommand *expert.Info
	unknownMeta    *expert.Info
}

func (f *fieldIDs) register(reg *dispatch.Registry) {
	add := func(id *field.ID, d *field.Descriptor) {
		reg.RegisterFields(d)
		*id = d.ID
	}
	add(&f.version, &field.Descriptor{Name: "Version", Abbrev: "icq.version", Type: field.TypeUint16, Base: field.BaseDec})
	add(&f.client, &field.Descriptor{Name: "Client/Server", Abbrev: "icq.client", Type: field.TypeBool, TrueFalse: &field.TrueFalse{True: "Client", False: "Server"}})
	add(&f.msgType, &field.Descriptor{Name: "Type", Abbrev: "icq.msg_type", Type: field.TypeUint16, Base: field.BaseDec, Strings: msgTypeVals})
	add(&f.uin, &field.Descriptor{Name: "UIN", Abbrev: "icq.uin", Type: field.TypeUint32, Base: field.BaseDec})
	add(&f.sessionID, &field.Descriptor{Name: "Session ID", Abbrev: "icq.sessionid", Type: field.TypeUint32, Base: field.BaseHex})
	add(&f.clientCmd, &field.Descriptor{Name: "Client command", Abbrev: "icq.client_cmd", Type: field.TypeUint16, Base: field.BaseDec, Strings: clientCmdVals})
	add(&f.serverCmd, &field.Descriptor{Name: "Server command", Abbrev: "icq.server_cmd", Type: field.TypeUint16, Base: field.BaseDec, Strings: serverCmdVals})
	add(&f.checkcode, &field.Descriptor{Name: "Checkcode", Abbrev: "icq.checkcode", Type: field.TypeUint32, Base: field.BaseHex})
	add(&f.checkcodeKey, &field.Descriptor{Name: "Key", Abbrev: "icq.checkcode_key", Type: field.TypeUint32, Base: field.BaseHex})
	add(&f.seq1, &field.Descriptor{Name: "Seq Number 1", Abbrev: "icq.seqnum1", Type: field.TypeUint16, Base: field.BaseHex})
	add(&f.seq2, &field.Descriptor{Name: "Seq Number 2", Abbrev: "icq.seqnum2", Type: field.TypeUint16, Base: field.BaseHex})
	add(&f.group, &field.Descriptor{Name: "Group", Abbrev: "icq.group", Type: field.TypeUint32, Base: field.BaseDec, Strings: groupVals})
	add(&f.ackRandom, &field.Descriptor{Name: "Random", Abbrev: "icq.ack.random", Type: field.TypeUint32, Base: field.BaseHex})
	add(&f.keepAlive, &field.Descriptor{Name: "Random", Abbrev: "icq.keep_alive.random", Type: field.TypeUint32, Base: field.BaseHex})
	add(&f.status, &field.Descriptor{Name: "Status", Abbrev: "icq.status", Type: field.TypeUint32, Base: field.BaseDec, Strings: statusVals})
	add(&f.metaSubcmd, &field.Descriptor{Name: "Subcommand", Abbrev: "icq.meta_user.subcmd", Type: field.TypeUint16, Base: field.BaseDec, Strings: metaSubcmdVals})
	add(&f.receiverUIN, &field.Descriptor{Name: "Receiver UIN", Abbrev: "icq.receiver_uin", Type: field.TypeUint32, Base: field.BaseDec})
	add(&f.ip, &field.Descriptor{Name: "IP", Abbrev: "icq.ip", Type: field.TypeIPv4})
	add(&f.realIP, &field.Descriptor{Name: "RealIP", Abbrev: "icq.realip", Type: field.TypeIPv4})
	add(&f.port, &field.Descriptor{Name: "Port", Abbrev: "icq.port", Type: field.TypeUint32, Base: field.BaseDec})
	add(&f.loginTime, &field.Descriptor{Name: "Time", Abbrev: "icq.login.time", Type: field.TypeAbsTime})
	add(&f.password, &field.Descriptor{Name: "Passwd", Abbrev: "icq.login.password", Type: field.TypeString})
	add(&f.tcpVersion, &field.Descriptor{Name: "TCPVersion", Abbrev: "icq.tcp_version", Type: field.TypeUint16, Base: field.BaseDec})
	add(&f.bundleCount, &field.Descriptor{Name: "Number of pkts", Abbrev: "icq.multi.count", Type: field.TypeUint8, Base: field.BaseDec})
	add(&f.bundleLen, &field.Descriptor{Name: "Packet length", Abbrev: "icq.multi.length", Type: field.TypeUint16, Base: field.BaseDec})
}

func (s *subtreeIDs) register(reg *dispatch.Registry) {
	s.icq = reg.RegisterSubtree("icq")
	s.header = reg.RegisterSubtree("icq.header")
	s.body = reg.RegisterSubtree("icq.body")
	s.bodyParts = reg.RegisterSubtree("icq.body_parts")
	s.bundle = reg.RegisterSubtree("icq.multi")
}

func (e *expertInfos) register(reg *dispatch.Registry) {
	e.unknownCommand = &expert.Info{
		Abbrev:   "icq.unknown_command",
		Severity: dissect.SeverityWarn,
		Group:    expert.GroupUndecoded,
		Summary:  "Unknown command",
	}
	e.unknownMeta = &expert.Info{
		Abbrev:   "icq.unknown_meta_subcmd",
		Severity: dissect.SeverityWarn,
		Group:    expert.GroupUndecoded,
		Summary:  "Unknown meta subcmd",
	}
	reg.RegisterExpert(e.unknownCommand, e.unknownMeta)
}
