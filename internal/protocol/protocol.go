package protocol

import "encoding/json"

// SaveVersion is written into every save document and journal header.
const SaveVersion = 1

// Journal event types.
const (
	EventProjectAccepted  = "PROJECT_ACCEPTED"
	EventProjectRejected  = "PROJECT_REJECTED"
	EventProjectAbandoned = "PROJECT_ABANDONED"
	EventProjectCompleted = "PROJECT_COMPLETED"
	EventProjectFailed    = "PROJECT_FAILED"
	EventNeedsFunding     = "NEEDS_FUNDING"
	EventTrainingFunded   = "TRAINING_FUNDED"
	EventCostumeRequested = "COSTUME_REQUESTED"
	EventCostumeVerdict   = "COSTUME_VERDICT"
	EventDeadlineExtended = "DEADLINE_EXTENDED"
	EventCostumeReserved  = "COSTUME_RESERVED"
	EventCostumeCommitted = "COSTUME_COMMITTED"
	EventCostumeReleased  = "COSTUME_RELEASED"
	EventRelationship     = "RELATIONSHIP"
	EventBirthdayReminder = "BIRTHDAY_REMINDER"
	EventGreetingSent     = "GREETING_SENT"
	EventNPCRetired       = "NPC_RETIRED"
	EventOffersRefreshed  = "OFFERS_REFRESHED"
	EventCommandRejected  = "COMMAND_REJECTED"
	EventCollabProposed   = "COLLAB_PROPOSED"
	EventCollabAnswered   = "COLLAB_ANSWERED"
	EventChatMessage      = "CHAT_MESSAGE"
	EventGiftGiven        = "GIFT_GIVEN"
	EventStyleTraining    = "STYLE_TRAINING"
	EventTeamJoined       = "TEAM_JOINED"
	EventTeamEvent        = "TEAM_EVENT"
	EventItemBought       = "ITEM_BOUGHT"
)

// Event is one journal record. Keys are snake_case; "type" and "day" are always set.
type Event map[string]interface{}

func (e Event) Type() string {
	s, _ := e["type"].(string)
	return s
}

func DecodeEvent(b []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(b, &e)
	return e, err
}
