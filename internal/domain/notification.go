package domain

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationAanmaning         NotificationType = "AANMANING"
	NotificationSommatie          NotificationType = "SOMMATIE"
	NotificationIngebrekestelling NotificationType = "INGEBREKESTELLING"
	NotificationBlokkade          NotificationType = "BLOKKADE"
)

// NotificationTypeFor maps a ladder status to the notification recorded on entering it.
func NotificationTypeFor(s CaseStatus) (NotificationType, error) {
	switch s {
	case StatusAanmaning:
		return NotificationAanmaning, nil
	case StatusSommatie:
		return NotificationSommatie, nil
	case StatusIngebrekestelling:
		return NotificationIngebrekestelling, nil
	case StatusBlokkade:
		return NotificationBlokkade, nil
	case StatusOverdue, StatusPending, StatusInProgress, StatusPaid, StatusCancelled:
	}
	return "", fmt.Errorf("status %s has no notification type", s)
}

type Notification struct {
	ID               string
	CollectionCaseID string
	Type             NotificationType
	Title            string
	Message          string
	SentAt           time.Time
	CreatedAt        time.Time
}

// NoticeKind names what the notifier must deliver for a case.
type NoticeKind string

const (
	NoticeSommatie          NoticeKind = "SOMMATIE"
	NoticeIngebrekestelling NoticeKind = "INGEBREKESTELLING"
	NoticeBlokkade          NoticeKind = "BLOKKADE"
	NoticeReminder1         NoticeKind = "REMINDER_1"
	NoticeReminder2         NoticeKind = "REMINDER_2"
)

func NoticeForStage(t NotificationType) NoticeKind {
	return NoticeKind(t)
}

// ReminderSlot identifies one of the two reminder date/sent-at pairs on a case.
type ReminderSlot int

const (
	Reminder1 ReminderSlot = 1
	Reminder2 ReminderSlot = 2
)

func (s ReminderSlot) Notice() NoticeKind {
	if s == Reminder2 {
		return NoticeReminder2
	}
	return NoticeReminder1
}

func (s ReminderSlot) String() string {
	return fmt.Sprintf("reminder%d", int(s))
}

var stageTitles = map[NotificationType]string{
	NotificationAanmaning:         "Aanmaning",
	NotificationSommatie:          "Sommatie",
	NotificationIngebrekestelling: "Ingebrekestelling",
	NotificationBlokkade:          "Blokkade",
}

// StageNotification builds the record stored when a case enters a ladder stage.
func StageNotification(id, caseID string, t NotificationType, at time.Time) Notification {
	title := stageTitles[t]
	return Notification{
		ID:               id,
		CollectionCaseID: caseID,
		Type:             t,
		Title:            title,
		Message:          fmt.Sprintf("%s verzonden voor dossier %s", title, caseID),
		SentAt:           at,
		CreatedAt:        at,
	}
}
