// internal/dispatch/saga.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"
)

func intentPath(intentID string) string {
	return "externalDispatchIntents/" + intentID
}

// runSteps chạy bốn bước side effect của một lần xuất hàng theo đúng
// thứ tự, đánh dấu từng bước vào intent. Bước đầu tiên ghi phiếu xuất;
// lỗi ở các bước sau được bọc trong ErrPartialDispatchFailure vì phiếu
// đã tồn tại và caller cần biết điều đó.
func (e *Engine) runSteps(ctx context.Context, intent *models.DispatchIntent, dispatch *models.ExternalDispatch) error {
	steps := []struct {
		name string
		run  func(context.Context, *models.DispatchIntent, *models.ExternalDispatch) error
	}{
		{models.StepDispatchPersisted, e.stepPersistDispatch},
		{models.StepInventoryAdjusted, e.stepAdjustInventory},
		{models.StepTrackingUpdated, e.stepUpdateTracking},
		{models.StepNotificationsQueued, e.stepQueueNotifications},
	}

	for _, step := range steps {
		if intentHasStep(intent, step.name) {
			continue
		}
		if err := step.run(ctx, intent, dispatch); err != nil {
			e.markIntentFailed(ctx, intent, step.name, err)
			if step.name == models.StepDispatchPersisted {
				return fmt.Errorf("failed to persist dispatch %s: %w", dispatch.DispatchID, err)
			}
			log.Printf("CRITICAL: dispatch %s persisted but step %s failed: %v", dispatch.DispatchID, step.name, err)
			return fmt.Errorf("%w: step %s: %v", ErrPartialDispatchFailure, step.name, err)
		}
		e.markStepDone(ctx, intent, step.name)
	}

	intent.Status = models.IntentCompleted
	intent.UpdatedAt = time.Now()
	if err := e.Store.Update(ctx, intentPath(intent.IntentID), map[string]interface{}{
		"status":    models.IntentCompleted,
		"updatedAt": intent.UpdatedAt,
	}); err != nil {
		log.Printf("dispatch: failed to mark intent %s completed: %v", intent.IntentID, err)
	}
	return nil
}

func intentHasStep(intent *models.DispatchIntent, name string) bool {
	for _, s := range intent.CompletedSteps {
		if s == name {
			return true
		}
	}
	return false
}

func (e *Engine) markStepDone(ctx context.Context, intent *models.DispatchIntent, name string) {
	intent.CompletedSteps = append(intent.CompletedSteps, name)
	intent.UpdatedAt = time.Now()
	err := e.Store.Update(ctx, intentPath(intent.IntentID), map[string]interface{}{
		"completedSteps": intent.CompletedSteps,
		"failedStep":     "",
		"failureReason":  "",
		"updatedAt":      intent.UpdatedAt,
	})
	if err != nil {
		log.Printf("dispatch: failed to record step %s on intent %s: %v", name, intent.IntentID, err)
	}
}

func (e *Engine) markIntentFailed(ctx context.Context, intent *models.DispatchIntent, step string, cause error) {
	intent.Status = models.IntentFailed
	intent.FailedStep = step
	intent.FailureReason = cause.Error()
	intent.UpdatedAt = time.Now()
	err := e.Store.Update(ctx, intentPath(intent.IntentID), map[string]interface{}{
		"status":        models.IntentFailed,
		"failedStep":    step,
		"failureReason": cause.Error(),
		"updatedAt":     intent.UpdatedAt,
	})
	if err != nil {
		log.Printf("dispatch: failed to record failure on intent %s: %v", intent.IntentID, err)
	}
}

func (e *Engine) stepPersistDispatch(ctx context.Context, _ *models.DispatchIntent, dispatch *models.ExternalDispatch) error {
	return e.Store.Set(ctx, "externalDispatches/"+dispatch.DispatchID, dispatch)
}

// stepAdjustInventory trừ tồn kho thành phẩm cho từng dòng hàng, chặn
// dưới ở 0, và ghi một mục audit cho mỗi lần trừ. MovementID dẫn xuất
// từ intentID nên chạy lại cùng intent chỉ ghi đè audit cũ thay vì trừ
// kho lần nữa.
func (e *Engine) stepAdjustInventory(ctx context.Context, intent *models.DispatchIntent, dispatch *models.ExternalDispatch) error {
	now := time.Now()
	for i, line := range dispatch.Items {
		movementID := fmt.Sprintf("%s-%d", intent.IntentID, i)
		var existing models.InventoryMovement
		err := e.Store.Get(ctx, "inventoryMovements/"+movementID, &existing)
		if err == nil {
			// Dòng này đã trừ trong lần chạy trước.
			continue
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("failed to check inventory movement %s: %w", movementID, err)
		}

		key := models.InventoryKey{
			ProductID:   line.ProductID,
			BatchNumber: line.BatchNumber,
		}
		dir := "finishedGoodsInventory"
		if line.StockType == models.StockTypeUnits {
			key.Variant = line.Variant
			dir = "finishedGoodsPackagedInventory"
		}
		encodedKey := key.Encode()
		path := dir + "/" + encodedKey

		var record models.FinishedGoodsRecord
		err = e.Store.Get(ctx, path, &record)
		if errors.Is(err, ledger.ErrNotFound) {
			record = models.FinishedGoodsRecord{
				Key:         encodedKey,
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Variant:     key.Variant,
				BatchNumber: line.BatchNumber,
				Quantity:    0,
				Unit:        line.Quantity.Unit,
			}
		} else if err != nil {
			return fmt.Errorf("failed to read inventory %s: %w", path, err)
		}

		remaining := record.Quantity - line.Quantity.Value
		if remaining < 0 {
			log.Printf("CRITICAL: inventory %s went below zero (had %.2f, dispatching %.2f), clamping to 0",
				encodedKey, record.Quantity, line.Quantity.Value)
			remaining = 0
		}
		record.Quantity = remaining
		record.UpdatedAt = now
		if err := e.Store.Set(ctx, path, record); err != nil {
			return fmt.Errorf("failed to update inventory %s: %w", path, err)
		}

		movement := models.InventoryMovement{
			MovementID: movementID,
			Key:        encodedKey,
			Direction:  "out",
			Quantity:   line.Quantity.Value,
			Reason:     "external dispatch",
			Source:     dispatch.DispatchID,
			Location:   record.Location,
			At:         now,
		}
		if err := e.Store.Set(ctx, "inventoryMovements/"+movementID, movement); err != nil {
			return fmt.Errorf("failed to record inventory movement %s: %w", movementID, err)
		}
	}
	return nil
}

func (e *Engine) stepUpdateTracking(ctx context.Context, _ *models.DispatchIntent, dispatch *models.ExternalDispatch) error {
	return e.Tracker.RecordDispatch(ctx, dispatch)
}

func (e *Engine) stepQueueNotifications(ctx context.Context, _ *models.DispatchIntent, dispatch *models.ExternalDispatch) error {
	if dispatch.Recipient.Type == models.RecipientDirectShop {
		e.Notifier.NotifyMobile(ctx, dispatch.Recipient.ID, "dispatch_sent",
			"Hàng đã xuất kho",
			fmt.Sprintf("Đơn hàng %s đã xuất kho với mã %s", dispatch.DispatchID, dispatch.ReleaseCode),
			map[string]interface{}{
				"dispatchID":  dispatch.DispatchID,
				"releaseCode": dispatch.ReleaseCode,
				"totalValue":  dispatch.TotalValue,
			})
	}
	return nil
}

// ResumePending quét các intent chưa hoàn tất lúc khởi động và chạy
// lại các bước còn thiếu. Intent mà phiếu xuất chưa kịp ghi thì không
// dựng lại được và bị đánh dấu failed.
func (e *Engine) ResumePending(ctx context.Context) {
	for _, status := range []string{models.IntentPending, models.IntentFailed} {
		var intents []models.DispatchIntent
		if err := e.Store.Query(ctx, "externalDispatchIntents", map[string]interface{}{"status": status}, &intents); err != nil {
			log.Printf("dispatch: failed to scan %s intents: %v", status, err)
			continue
		}
		for i := range intents {
			intent := intents[i]
			if intentHasStep(&intent, models.StepDispatchPersisted) {
				var dispatch models.ExternalDispatch
				if err := e.Store.Get(ctx, "externalDispatches/"+intent.DispatchID, &dispatch); err != nil {
					log.Printf("dispatch: cannot resume intent %s, dispatch %s unreadable: %v", intent.IntentID, intent.DispatchID, err)
					continue
				}
				if err := e.runSteps(ctx, &intent, &dispatch); err != nil {
					log.Printf("dispatch: resume of intent %s failed again: %v", intent.IntentID, err)
					continue
				}
				log.Printf("dispatch: resumed and completed intent %s (dispatch %s)", intent.IntentID, intent.DispatchID)
				continue
			}
			// Chết trước cả bước ghi phiếu: không còn gì để làm tiếp.
			e.markIntentFailed(ctx, &intent, models.StepDispatchPersisted, errors.New("dispatch document was never persisted"))
		}
	}
}
