package protocol

import (
	"fmt"
	"strings"
)

// Kind is the semantic message type of a packet. The numeric value is not the
// wire id; ids are assigned by the registry.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFailure
	KindCreateSuccess
	KindCreate
	KindPlayerShoot
	KindMove
	KindPlayerText
	KindText
	KindShoot2
	KindDamage
	KindUpdate
	KindUpdateAck
	KindNotification
	KindNewTick
	KindInvSwap
	KindUseItem
	KindShowEffect
	KindHello
	KindGoto
	KindInvDrop
	KindInvResult
	KindReconnect
	KindPing
	KindPong
	KindMapInfo
	KindLoad
	KindPic
	KindSetCondition
	KindTeleport
	KindUsePortal
	KindDeath
	KindBuy
	KindBuyResult
	KindAoe
	KindGroundDamage
	KindPlayerHit
	KindEnemyHit
	KindAoeAck
	KindShootAck
	KindOtherHit
	KindSquareHit
	KindGotoAck
	KindEditAccountList
	KindAccountList
	KindQuestObjID
	KindChooseName
	KindNameResult
	KindCreateGuild
	KindCreateGuildResult
	KindGuildRemove
	KindGuildInvite
	KindAllyShoot
	KindShoot
	KindRequestTrade
	KindTradeRequested
	KindTradeStart
	KindChangeTrade
	KindTradeChanged
	KindAcceptTrade
	KindCancelTrade
	KindTradeDone
	KindTradeAccepted
	KindClientStat
	KindCheckCredits
	KindEscape
	KindFile
	KindInvitedToGuild
	KindJoinGuild
	KindChangeGuildRank
	KindPlaySound
	KindGlobalNotification
	KindReskin
	KindEnterArena

	kindCount
)

// Schema names as they appear in packet definition files.
var kindNames = [kindCount]string{
	KindUnknown:            "UNKNOWN",
	KindFailure:            "FAILURE",
	KindCreateSuccess:      "CREATE_SUCCESS",
	KindCreate:             "CREATE",
	KindPlayerShoot:        "PLAYERSHOOT",
	KindMove:               "MOVE",
	KindPlayerText:         "PLAYERTEXT",
	KindText:               "TEXT",
	KindShoot2:             "SHOOT2",
	KindDamage:             "DAMAGE",
	KindUpdate:             "UPDATE",
	KindUpdateAck:          "UPDATEACK",
	KindNotification:       "NOTIFICATION",
	KindNewTick:            "NEW_TICK",
	KindInvSwap:            "INVSWAP",
	KindUseItem:            "USEITEM",
	KindShowEffect:         "SHOW_EFFECT",
	KindHello:              "HELLO",
	KindGoto:               "GOTO",
	KindInvDrop:            "INVDROP",
	KindInvResult:          "INVRESULT",
	KindReconnect:          "RECONNECT",
	KindPing:               "PING",
	KindPong:               "PONG",
	KindMapInfo:            "MAPINFO",
	KindLoad:               "LOAD",
	KindPic:                "PIC",
	KindSetCondition:       "SETCONDITION",
	KindTeleport:           "TELEPORT",
	KindUsePortal:          "USEPORTAL",
	KindDeath:              "DEATH",
	KindBuy:                "BUY",
	KindBuyResult:          "BUYRESULT",
	KindAoe:                "AOE",
	KindGroundDamage:       "GROUNDDAMAGE",
	KindPlayerHit:          "PLAYERHIT",
	KindEnemyHit:           "ENEMYHIT",
	KindAoeAck:             "AOEACK",
	KindShootAck:           "SHOOTACK",
	KindOtherHit:           "OTHERHIT",
	KindSquareHit:          "SQUAREHIT",
	KindGotoAck:            "GOTOACK",
	KindEditAccountList:    "EDITACCOUNTLIST",
	KindAccountList:        "ACCOUNTLIST",
	KindQuestObjID:         "QUESTOBJID",
	KindChooseName:         "CHOOSENAME",
	KindNameResult:         "NAMERESULT",
	KindCreateGuild:        "CREATEGUILD",
	KindCreateGuildResult:  "CREATEGUILDRESULT",
	KindGuildRemove:        "GUILDREMOVE",
	KindGuildInvite:        "GUILDINVITE",
	KindAllyShoot:          "ALLYSHOOT",
	KindShoot:              "SHOOT",
	KindRequestTrade:       "REQUESTTRADE",
	KindTradeRequested:     "TRADEREQUESTED",
	KindTradeStart:         "TRADESTART",
	KindChangeTrade:        "CHANGETRADE",
	KindTradeChanged:       "TRADECHANGED",
	KindAcceptTrade:        "ACCEPTTRADE",
	KindCancelTrade:        "CANCELTRADE",
	KindTradeDone:          "TRADEDONE",
	KindTradeAccepted:      "TRADEACCEPTED",
	KindClientStat:         "CLIENTSTAT",
	KindCheckCredits:       "CHECKCREDITS",
	KindEscape:             "ESCAPE",
	KindFile:               "FILE",
	KindInvitedToGuild:     "INVITEDTOGUILD",
	KindJoinGuild:          "JOINGUILD",
	KindChangeGuildRank:    "CHANGEGUILDRANK",
	KindPlaySound:          "PLAYSOUND",
	KindGlobalNotification: "GLOBAL_NOTIFICATION",
	KindReskin:             "RESKIN",
	KindEnterArena:         "ENTER_ARENA",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k, name := range kindNames {
		m[name] = Kind(k)
	}
	return m
}()

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is a known kind other than KindUnknown.
func (k Kind) Valid() bool {
	return k > KindUnknown && k < kindCount
}

// ParseKind resolves a schema name, case-insensitively.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindByName[strings.ToUpper(strings.TrimSpace(name))]
	return k, ok
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Direction records which side of the relay a packet was observed on.
type Direction uint8

const (
	DirectionClient Direction = iota
	DirectionServer
)

func (d Direction) String() string {
	if d == DirectionServer {
		return "server"
	}
	return "client"
}

// ParseDirection accepts "client" or "server".
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "client":
		return DirectionClient, nil
	case "server":
		return DirectionServer, nil
	default:
		return DirectionClient, fmt.Errorf("protocol: unknown direction %q", raw)
	}
}
