package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devicemanager/api/internal/core/domain"
)

// AssignmentRepository reads the custody history. Rows are written by the
// provisioning workflow, never by this service.
type AssignmentRepository struct {
	col *mongo.Collection
}

func NewAssignmentRepository(db *mongo.Database) *AssignmentRepository {
	return &AssignmentRepository{col: db.Collection(collectionAssignments)}
}

type assignmentDoc struct {
	ID         int64     `bson:"_id"`
	DeviceID   int64     `bson:"device_id"`
	EmployeeID int64     `bson:"employee_id"`
	IssueDate  time.Time `bson:"issue_date"`
}

func (r *AssignmentRepository) ListByDevice(ctx context.Context, deviceID int64) ([]domain.DeviceAssignment, error) {
	return r.list(ctx, bson.M{"device_id": deviceID})
}

func (r *AssignmentRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]domain.DeviceAssignment, error) {
	return r.list(ctx, bson.M{"employee_id": employeeID})
}

func (r *AssignmentRepository) list(ctx context.Context, filter bson.M) ([]domain.DeviceAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	var docs []assignmentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode assignments: %w", err)
	}

	out := make([]domain.DeviceAssignment, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.DeviceAssignment{
			ID:         d.ID,
			DeviceID:   d.DeviceID,
			EmployeeID: d.EmployeeID,
			IssueDate:  d.IssueDate,
		})
	}
	return out, nil
}
