package publisher

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JamisonProctor/planz/extractor"
	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
)

const ExternalKeyTimeLayout = "2006-01-02T15:04:05-07:00"

const (
	StoreResultCreated   = "created"
	StoreResultUpdated   = "updated"
	StoreResultUnchanged = "unchanged"
)

// BuildExternalKey is the identity of an event: sha256 of its detail (or
// source) url and its start in the source's civil timezone.
func BuildExternalKey(url string, start time.Time) string {
	return utils.TextToSha256Hash(url + "|" + start.Format(ExternalKeyTimeLayout))
}

type StoreResult struct {
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Unchanged     int `json:"unchanged"`
	Invalid       int `json:"invalid"`
	DiscardedPast int `json:"discarded_past"`
}

func (r *StoreResult) add(other StoreResult) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Unchanged += other.Unchanged
	r.Invalid += other.Invalid
	r.DiscardedPast += other.DiscardedPast
}

// EventStore upserts events by external key within one transaction.
//
// Events seen during the run are kept in memory so that two items with the same
// key in one batch resolve to one row without another query. A miss in memory
// falls back to the database; the unique index on external_key is the final
// guarantee.
type EventStore struct {
	tx    *gorm.DB
	loc   *time.Location
	known map[string]*model.Event
}

func NewEventStore(tx *gorm.DB, loc *time.Location) *EventStore {
	return &EventStore{tx: tx, loc: loc, known: map[string]*model.Event{}}
}

func (s *EventStore) lookup(key string) (*model.Event, error) {
	if e, ok := s.known[key]; ok {
		return e, nil
	}
	var e model.Event
	res := s.tx.Where("external_key = ?", key).Limit(1).Find(&e)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "fail to look up event %s", key)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	s.known[key] = &e
	return &e, nil
}

// Upsert stores one event and reports whether it was created, updated or left
// unchanged. An update drops the event's calendar sync so it is pushed again.
func (s *EventStore) Upsert(in extractor.NormalizedEvent) (string, error) {
	key := BuildExternalKey(in.KeyUrl(), in.Start.In(s.loc))
	existing, err := s.lookup(key)
	if err != nil {
		return "", err
	}

	if existing == nil {
		e := &model.Event{
			Id:          uuid.New().String(),
			Title:       in.Title,
			StartTime:   in.Start.UTC(),
			EndTime:     in.End.UTC(),
			Location:    in.Location,
			Description: in.Description,
			SourceUrl:   in.KeyUrl(),
			ExternalKey: key,
		}
		if err := s.tx.Omit(clause.Associations).Create(e).Error; err != nil {
			return "", errors.Wrapf(err, "fail to create event %q", in.Title)
		}
		s.known[key] = e
		utils.EventsStoredCounter.WithLabelValues(StoreResultCreated).Inc()
		return StoreResultCreated, nil
	}

	if !applyChanges(existing, in) {
		utils.EventsStoredCounter.WithLabelValues(StoreResultUnchanged).Inc()
		return StoreResultUnchanged, nil
	}
	if err := s.tx.Omit(clause.Associations).Save(existing).Error; err != nil {
		return "", errors.Wrapf(err, "fail to update event %s", existing.Id)
	}
	if err := s.tx.Where("event_id = ?", existing.Id).Delete(&model.CalendarSync{}).Error; err != nil {
		return "", errors.Wrapf(err, "fail to reset calendar sync of event %s", existing.Id)
	}
	existing.CalendarSync = nil
	utils.EventsStoredCounter.WithLabelValues(StoreResultUpdated).Inc()
	return StoreResultUpdated, nil
}

// StoreAll upserts events and tallies the outcomes.
func (s *EventStore) StoreAll(events []extractor.NormalizedEvent) (StoreResult, error) {
	result := StoreResult{}
	for _, e := range events {
		outcome, err := s.Upsert(e)
		if err != nil {
			return result, err
		}
		switch outcome {
		case StoreResultCreated:
			result.Created++
		case StoreResultUpdated:
			result.Updated++
		default:
			result.Unchanged++
		}
	}
	return result, nil
}

// applyChanges copies the mutable fields of in onto e, returns false if
// nothing differed.
func applyChanges(e *model.Event, in extractor.NormalizedEvent) bool {
	changed := false
	if e.Title != in.Title {
		e.Title = in.Title
		changed = true
	}
	if !e.StartTime.Equal(in.Start) {
		e.StartTime = in.Start.UTC()
		changed = true
	}
	if !e.EndTime.Equal(in.End) {
		e.EndTime = in.End.UTC()
		changed = true
	}
	if e.Location != in.Location {
		e.Location = in.Location
		changed = true
	}
	if e.Description != in.Description {
		e.Description = in.Description
		changed = true
	}
	if e.SourceUrl != in.KeyUrl() {
		e.SourceUrl = in.KeyUrl()
		changed = true
	}
	return changed
}
