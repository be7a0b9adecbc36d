package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yunusmujadidi/purchase-order/ingest"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/repository"
	"github.com/yunusmujadidi/purchase-order/utils"
	"gorm.io/gorm"
)

// createAttempts bounds retries when a concurrent create takes the same order number
const createAttempts = 3

var (
	// ErrInvalidStage is returned for a stage outside models.Stages
	ErrInvalidStage = errors.New("invalid stage")
	// ErrInvalidStatus is returned for a status outside models.Statuses
	ErrInvalidStatus = errors.New("invalid status")
	// ErrEmptyComment is returned for a blank comment
	ErrEmptyComment = errors.New("comment text is required")
)

// OrderService applies order writes that carry side effects: numbering, the
// activity log, live events and picture cleanup
type OrderService struct {
	repo   repository.OrderRepository
	events Publisher
	images ImageService
	loc    *time.Location
	now    func() time.Time
}

// NewOrderService wires the order write path. events and images may be nil.
func NewOrderService(repo repository.OrderRepository, events Publisher, images ImageService, loc *time.Location) *OrderService {
	if events == nil {
		events = NopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OrderService{repo: repo, events: events, images: images, loc: loc, now: time.Now}
}

// Create numbers and stores a new order. New orders always start PENDING/PENDING.
func (s *OrderService) Create(ctx context.Context, actor *models.User, order *models.Order) error {
	order.CurrentStage = models.StagePending
	order.Status = models.StatusPending
	if order.Priority == "" {
		order.Priority = models.PriorityStandard
	}
	order.CreatedByID = actor.ID

	year := s.now().In(s.loc).Year()
	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		var seq int
		seq, err = s.repo.MaxSequence(ctx, year)
		if err != nil {
			return err
		}
		order.ID = uuid.Nil
		order.OrderNumber = ingest.FormatOrderNumber(year, seq+1)

		err = s.repo.Create(ctx, order)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		log.Printf("Order number %s taken, retrying", order.OrderNumber)
	}
	if err != nil {
		return err
	}

	s.record(ctx, &models.OrderActivity{OrderID: order.ID, ActorID: actor.ID, Kind: models.ActivityCreated, Text: "Order created"})
	s.events.Publish(NewOrderEvent(EventOrderCreated, order))
	return nil
}

// Update applies a partial update
func (s *OrderService) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Order, error) {
	order, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.events.Publish(NewOrderEvent(EventOrderUpdated, order))
	return order, nil
}

// ChangeStage moves an order to another stage and logs the change. The status is untouched.
func (s *OrderService) ChangeStage(ctx context.Context, actor *models.User, id uuid.UUID, stage models.Stage) (*models.Order, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.CurrentStage == stage {
		return current, nil
	}

	order, err := s.repo.UpdateStage(ctx, id, stage)
	if err != nil {
		return nil, err
	}

	s.record(ctx, changeActivity(id, actor.ID, models.ActivityStageChanged, string(current.CurrentStage), string(stage)))
	s.events.Publish(NewOrderEvent(EventStageChanged, order))
	return order, nil
}

// ChangeStatus sets an order's status and logs the change. The stage is untouched.
func (s *OrderService) ChangeStatus(ctx context.Context, actor *models.User, id uuid.UUID, status models.Status) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}

	order, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.record(ctx, changeActivity(id, actor.ID, models.ActivityStatusChanged, string(current.Status), string(status)))
	s.events.Publish(NewOrderEvent(EventStatusChanged, order))
	return order, nil
}

// Comment appends a note to an order's activity log
func (s *OrderService) Comment(ctx context.Context, actor *models.User, id uuid.UUID, text string) (*models.OrderActivity, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	activity := &models.OrderActivity{OrderID: id, ActorID: actor.ID, Kind: models.ActivityComment, Text: text}
	if err := s.repo.AddActivity(ctx, activity); err != nil {
		return nil, err
	}
	activity.Actor = *actor
	return activity, nil
}

// AttachPicture stores a picture upload as the order's picture, replacing a previous upload
func (s *OrderService) AttachPicture(ctx context.Context, id uuid.UUID, upload func(context.Context) (string, error)) (*models.Order, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := upload(ctx)
	if err != nil {
		return nil, err
	}

	order, err := s.Update(ctx, id, map[string]interface{}{"picture_ref": key, "picture_uploaded": true})
	if err != nil {
		return nil, err
	}

	if current.PictureRef != nil && *current.PictureRef != key {
		s.deletePicture(ctx, current)
	}
	return order, nil
}

// Delete removes an order, its activity and its stored picture
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.deletePicture(ctx, order)
	s.events.Publish(NewOrderEvent(EventOrderDeleted, order))
	return nil
}

// deletePicture removes the upload an order owns. Imported picture cells are
// never deleted, even when they look like a storage key.
func (s *OrderService) deletePicture(ctx context.Context, order *models.Order) {
	if s.images == nil || !order.PictureUploaded || order.PictureRef == nil || !utils.IsStoredPicture(*order.PictureRef) {
		return
	}
	if err := s.images.DeleteImage(ctx, *order.PictureRef); err != nil {
		log.Printf("Failed to delete picture %s: %v", *order.PictureRef, err)
	}
}

// record writes an activity row; a failure is logged and never fails the change itself
func (s *OrderService) record(ctx context.Context, activity *models.OrderActivity) {
	if err := s.repo.AddActivity(ctx, activity); err != nil {
		log.Printf("Failed to record %s activity for order %s: %v", activity.Kind, activity.OrderID, err)
	}
}

func changeActivity(orderID, actorID uuid.UUID, kind, from, to string) *models.OrderActivity {
	return &models.OrderActivity{
		OrderID:   orderID,
		ActorID:   actorID,
		Kind:      kind,
		Text:      fmt.Sprintf("%s → %s", from, to),
		FromValue: &from,
		ToValue:   &to,
	}
}
