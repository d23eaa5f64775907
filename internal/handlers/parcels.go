package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/swiftparcel/parcel-backend/internal/config"
	"github.com/swiftparcel/parcel-backend/internal/models"
	"github.com/swiftparcel/parcel-backend/internal/services"
	"github.com/swiftparcel/parcel-backend/pkg/query"
	"github.com/swiftparcel/parcel-backend/pkg/response"
	"github.com/swiftparcel/parcel-backend/pkg/utils"
)

var errConcurrentUpdate = errors.New("parcel was modified concurrently")

// queryParams flattens the request query into the map the query builder
// consumes (first value wins for repeated keys).
func queryParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// statusLogOrder keeps the audit trail in insertion order on every read.
func statusLogOrder(db *gorm.DB) *gorm.DB {
	return db.Order("status_logs.id ASC")
}

// applyTransition commits a status change and its audit entry atomically.
// The parcel update is conditioned on the status read earlier, so two racing
// transitions cannot both win; the loser gets errConcurrentUpdate.
func applyTransition(db *gorm.DB, parcel *models.Parcel, updates map[string]interface{}, entry models.StatusLog) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Parcel{}).
			Where("id = ? AND current_status = ?", parcel.ID, parcel.CurrentStatus).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errConcurrentUpdate
		}

		entry.ParcelID = parcel.ID
		return tx.Create(&entry).Error
	})
}

func transitionError(c *gin.Context, err error) {
	if errors.Is(err, errConcurrentUpdate) {
		response.Error(c, 400, "Parcel was modified concurrently, please retry")
		return
	}
	response.Error(c, 500, "Failed to update parcel")
}

func publishUpdate(c *gin.Context, parcel *models.Parcel, status models.ParcelStatus, note string) {
	_ = services.PublishParcelUpdate(c.Request.Context(), services.ParcelUpdate{
		ParcelID:   parcel.ID,
		TrackingID: parcel.TrackingID,
		Status:     string(status),
		SenderID:   parcel.SenderID,
		ReceiverID: parcel.ReceiverID,
		Note:       note,
	})
}

func parcelByParam(db *gorm.DB, c *gin.Context) (*models.Parcel, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Error(c, 400, "Invalid parcel ID")
		return nil, false
	}

	var parcel models.Parcel
	if err := db.First(&parcel, id).Error; err != nil {
		response.Error(c, 404, "Parcel not found")
		return nil, false
	}
	return &parcel, true
}

type CreateParcelInput struct {
	ReceiverEmail         string  `form:"receiverEmail" json:"receiverEmail" binding:"required,email"`
	ReceiverName          string  `form:"receiverName" json:"receiverName" binding:"required"`
	ReceiverPhone         string  `form:"receiverPhone" json:"receiverPhone" binding:"required"`
	ReceiverAddress       string  `form:"receiverAddress" json:"receiverAddress" binding:"required"`
	ParcelType            string  `form:"parcelType" json:"parcelType" binding:"required"`
	Weight                float64 `form:"weight" json:"weight" binding:"required,gt=0"`
	Description           string  `form:"description" json:"description"`
	EstimatedDeliveryDate string  `form:"estimatedDeliveryDate" json:"estimatedDeliveryDate"`
}

// CreateParcel registers a new shipment request for the calling sender.
// Sender contact fields are denormalized from the sender's profile at this
// moment; the first Requested log entry is created together with the parcel.
func CreateParcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		senderId := c.GetUint("userId")

		var input CreateParcelInput
		if err := c.ShouldBind(&input); err != nil {
			response.ErrorWithDetails(c, 400, "Invalid request body", err.Error())
			return
		}

		if !models.ParcelType(input.ParcelType).IsValid() {
			response.Error(c, 400, "Invalid parcel type")
			return
		}

		var sender models.User
		if err := db.First(&sender, senderId).Error; err != nil {
			response.Error(c, 404, "Sender not found")
			return
		}

		var receiver models.User
		if err := db.Where("email = ? AND role = ?", input.ReceiverEmail, models.RoleReceiver).
			First(&receiver).Error; err != nil {
			response.Error(c, 404, `Receiver not found. Make sure the receiver is registered with role "receiver".`)
			return
		}

		var estimated *time.Time
		if input.EstimatedDeliveryDate != "" {
			t, err := time.Parse(time.RFC3339, input.EstimatedDeliveryDate)
			if err != nil {
				t, err = time.Parse("2006-01-02", input.EstimatedDeliveryDate)
			}
			if err != nil {
				response.Error(c, 400, "Invalid estimated delivery date")
				return
			}
			estimated = &t
		}

		// Image attachment is optional and only present on multipart requests.
		var imageRef string
		if file, err := c.FormFile("parcelImage"); err == nil {
			uploaded, err := services.UploadImage(file, "parcels")
			if err != nil {
				response.Error(c, 500, "Failed to upload image")
				return
			}
			imageRef = uploaded
		}

		trackingId, err := uniqueTrackingID(db)
		if err != nil {
			response.Error(c, 500, "Failed to generate tracking ID")
			return
		}

		senderPhone := sender.Phone
		if senderPhone == "" {
			senderPhone = "N/A"
		}
		senderAddress := sender.Address
		if senderAddress == "" {
			senderAddress = "N/A"
		}

		parcel := models.Parcel{
			TrackingID:            trackingId,
			SenderID:              sender.ID,
			ReceiverID:            receiver.ID,
			SenderName:            sender.Name,
			SenderPhone:           senderPhone,
			SenderAddress:         senderAddress,
			ReceiverName:          input.ReceiverName,
			ReceiverPhone:         input.ReceiverPhone,
			ReceiverAddress:       input.ReceiverAddress,
			ParcelType:            models.ParcelType(input.ParcelType),
			Weight:                input.Weight,
			Description:           input.Description,
			CurrentStatus:         models.StatusRequested,
			Fee:                   utils.CalculateFee(input.Weight),
			EstimatedDeliveryDate: estimated,
			ParcelImage:           imageRef,
			StatusLogs: []models.StatusLog{
				{
					Status:      models.StatusRequested,
					Timestamp:   time.Now(),
					UpdatedByID: sender.ID,
					Note:        "Parcel request created by sender",
				},
			},
		}

		// gorm persists the parcel and its seed log entry in one transaction.
		if err := db.Create(&parcel).Error; err != nil {
			response.Error(c, 500, "Failed to create parcel")
			return
		}

		publishUpdate(c, &parcel, models.StatusRequested, "Parcel request created by sender")
		response.Success(c, 201, "Parcel created successfully", parcel)
	}
}

// uniqueTrackingID generates tracking IDs until one is free. Collisions are
// one-in-a-million per day, so a handful of attempts is plenty.
func uniqueTrackingID(db *gorm.DB) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		candidate := utils.GenerateTrackingID()
		var count int64
		if err := db.Model(&models.Parcel{}).Where("tracking_id = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique tracking ID")
}

// TrackParcel is the public tracking endpoint. The projection is a strict
// whitelist; it must never expose sender or receiver contact details.
func TrackParcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		trackingId := c.Param("trackingId")

		var parcel models.Parcel
		if err := db.Where("tracking_id = ?", trackingId).
			Preload("StatusLogs", statusLogOrder).
			First(&parcel).Error; err != nil {
			response.Error(c, 404, "Parcel not found with this tracking ID")
			return
		}

		logs := make([]gin.H, 0, len(parcel.StatusLogs))
		for _, entry := range parcel.StatusLogs {
			logs = append(logs, gin.H{
				"status":    entry.Status,
				"timestamp": entry.Timestamp,
				"location":  entry.Location,
				"note":      entry.Note,
			})
		}

		response.Success(c, 200, "Parcel tracked successfully", gin.H{
			"trackingId":            parcel.TrackingID,
			"currentStatus":         parcel.CurrentStatus,
			"statusLogs":            logs,
			"estimatedDeliveryDate": parcel.EstimatedDeliveryDate,
			"actualDeliveryDate":    parcel.ActualDeliveryDate,
			"createdAt":             parcel.CreatedAt,
		})
	}
}

// GetMySentParcels lists the calling sender's parcels with the standard
// filter parameters applied.
func GetMySentParcels(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		base := db.Model(&models.Parcel{}).
			Where("sender_id = ?", userId).
			Preload("Receiver").
			Preload("StatusLogs", statusLogOrder)

		var parcels []models.Parcel
		meta, err := query.New(base, queryParams(c)).
			Filter().Sort().Fields().Paginate().
			Find(&parcels)
		if err != nil {
			response.Error(c, 500, "Failed to fetch parcels")
			return
		}

		response.SuccessWithMeta(c, 200, "Sent parcels retrieved successfully", parcels, meta)
	}
}

// GetMyReceivedParcels lists parcels addressed to the calling receiver.
func GetMyReceivedParcels(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		base := db.Model(&models.Parcel{}).
			Where("receiver_id = ?", userId).
			Preload("Sender").
			Preload("StatusLogs", statusLogOrder)

		var parcels []models.Parcel
		meta, err := query.New(base, queryParams(c)).
			Filter().Sort().Fields().Paginate().
			Find(&parcels)
		if err != nil {
			response.Error(c, 500, "Failed to fetch parcels")
			return
		}

		response.SuccessWithMeta(c, 200, "Received parcels retrieved successfully", parcels, meta)
	}
}

// GetParcelByID returns the full parcel. Admins see everything; senders and
// receivers only their own parcels.
func GetParcelByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		role, _ := c.MustGet("userRole").(models.Role)

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			response.Error(c, 400, "Invalid parcel ID")
			return
		}

		var parcel models.Parcel
		if err := db.Preload("Sender").
			Preload("Receiver").
			Preload("StatusLogs", statusLogOrder).
			Preload("StatusLogs.UpdatedBy").
			First(&parcel, id).Error; err != nil {
			response.Error(c, 404, "Parcel not found")
			return
		}

		if role != models.RoleAdmin && parcel.SenderID != userId && parcel.ReceiverID != userId {
			response.Error(c, 403, "You do not have permission to view this parcel")
			return
		}

		if parcel.ParcelImage != "" {
			parcel.ParcelImage = services.GetImageURL(parcel.ParcelImage)
		}
		response.Success(c, 200, "Parcel retrieved successfully", parcel)
	}
}

type CancelParcelInput struct {
	Reason string `json:"reason"`
}

// CancelParcel lets the original sender cancel a parcel that has not been
// dispatched yet.
func CancelParcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		parcel, ok := parcelByParam(db, c)
		if !ok {
			return
		}

		if parcel.SenderID != userId {
			response.Error(c, 403, "You can only cancel your own parcels")
			return
		}

		if parcel.IsCancelled {
			response.Error(c, 400, "Parcel is already cancelled")
			return
		}

		if parcel.CurrentStatus.IsPastDispatch() {
			response.Error(c, 400, "Cannot cancel parcel after it has been dispatched")
			return
		}

		var input CancelParcelInput
		_ = c.ShouldBindJSON(&input)
		note := input.Reason
		if note == "" {
			note = "Cancelled by sender"
		}

		err := applyTransition(db, parcel, map[string]interface{}{
			"is_cancelled":   true,
			"current_status": models.StatusCancelled,
		}, models.StatusLog{
			Status:      models.StatusCancelled,
			Timestamp:   time.Now(),
			UpdatedByID: userId,
			Note:        note,
		})
		if err != nil {
			transitionError(c, err)
			return
		}

		parcel.IsCancelled = true
		parcel.CurrentStatus = models.StatusCancelled
		publishUpdate(c, parcel, models.StatusCancelled, note)
		response.Success(c, 200, "Parcel cancelled successfully", parcel)
	}
}

// ConfirmDelivery lets the parcel's receiver confirm receipt of a parcel
// that is out for delivery.
func ConfirmDelivery(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		parcel, ok := parcelByParam(db, c)
		if !ok {
			return
		}

		if parcel.ReceiverID != userId {
			response.Error(c, 403, "You can only confirm delivery for your own parcels")
			return
		}

		if parcel.CurrentStatus == models.StatusDelivered {
			response.Error(c, 400, "Parcel is already marked as delivered")
			return
		}

		if parcel.CurrentStatus != models.StatusOutForDelivery {
			response.Error(c, 400, "Parcel must be out for delivery to confirm receipt")
			return
		}

		now := time.Now()
		err := applyTransition(db, parcel, map[string]interface{}{
			"current_status":       models.StatusDelivered,
			"actual_delivery_date": now,
		}, models.StatusLog{
			Status:      models.StatusDelivered,
			Timestamp:   now,
			UpdatedByID: userId,
			Note:        "Delivery confirmed by receiver",
		})
		if err != nil {
			transitionError(c, err)
			return
		}

		parcel.CurrentStatus = models.StatusDelivered
		parcel.ActualDeliveryDate = &now
		publishUpdate(c, parcel, models.StatusDelivered, "Delivery confirmed by receiver")
		response.Success(c, 200, "Delivery confirmed successfully", parcel)
	}
}

// GetAllParcels is the admin listing with search, filtering, sorting and
// pagination.
func GetAllParcels(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		base := db.Model(&models.Parcel{}).
			Preload("Sender").
			Preload("Receiver").
			Preload("StatusLogs", statusLogOrder)

		var parcels []models.Parcel
		meta, err := query.New(base, queryParams(c)).
			Search("tracking_id", "sender_name", "receiver_name").
			Filter().Sort().Fields().Paginate().
			Find(&parcels)
		if err != nil {
			response.Error(c, 500, "Failed to fetch parcels")
			return
		}

		response.SuccessWithMeta(c, 200, "Parcels retrieved successfully", parcels, meta)
	}
}

type UpdateStatusInput struct {
	Status   string `json:"status" binding:"required"`
	Location string `json:"location"`
	Note     string `json:"note"`
}

// UpdateParcelStatus is the admin escape hatch for moving a parcel to any
// known status. With strict flow enabled the transition must follow the
// normal delivery progression.
func UpdateParcelStatus(cfg *config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminId := c.GetUint("userId")

		var input UpdateStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			response.ErrorWithDetails(c, 400, "Invalid request body", err.Error())
			return
		}

		status := models.ParcelStatus(input.Status)
		if !status.IsValid() {
			response.Error(c, 400, "Invalid status")
			return
		}

		parcel, ok := parcelByParam(db, c)
		if !ok {
			return
		}

		if cfg.StrictStatusFlow && !parcel.CurrentStatus.CanTransitionTo(status) {
			response.Error(c, 400, fmt.Sprintf("Cannot change status from %s to %s", parcel.CurrentStatus, status))
			return
		}

		note := input.Note
		if note == "" {
			note = fmt.Sprintf("Status updated to %s by admin", status)
		}

		updates := map[string]interface{}{"current_status": status}
		now := time.Now()
		if status == models.StatusDelivered {
			updates["actual_delivery_date"] = now
		}

		err := applyTransition(db, parcel, updates, models.StatusLog{
			Status:      status,
			Timestamp:   now,
			UpdatedByID: adminId,
			Location:    input.Location,
			Note:        note,
		})
		if err != nil {
			transitionError(c, err)
			return
		}

		parcel.CurrentStatus = status
		if status == models.StatusDelivered {
			parcel.ActualDeliveryDate = &now
		}
		publishUpdate(c, parcel, status, note)
		response.Success(c, 200, "Parcel status updated successfully", parcel)
	}
}

// ToggleBlockParcel flips the blocked flag and records it in the audit trail
// under the parcel's current status.
func ToggleBlockParcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminId := c.GetUint("userId")

		parcel, ok := parcelByParam(db, c)
		if !ok {
			return
		}

		blocked := !parcel.IsBlocked
		note := "Parcel unblocked by admin"
		if blocked {
			note = "Parcel blocked by admin"
		}

		err := applyTransition(db, parcel, map[string]interface{}{
			"is_blocked": blocked,
		}, models.StatusLog{
			Status:      parcel.CurrentStatus,
			Timestamp:   time.Now(),
			UpdatedByID: adminId,
			Note:        note,
		})
		if err != nil {
			transitionError(c, err)
			return
		}

		parcel.IsBlocked = blocked
		response.Success(c, 200, "Parcel block status updated successfully", parcel)
	}
}
