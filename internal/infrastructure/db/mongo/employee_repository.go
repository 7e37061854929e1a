package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/devicemanager/api/internal/core/domain"
)

// EmployeeRepository reads employees joined with their person and position.
// Employees are provisioned outside this service.
type EmployeeRepository struct {
	col *mongo.Collection
}

func NewEmployeeRepository(db *mongo.Database) *EmployeeRepository {
	return &EmployeeRepository{col: db.Collection(collectionEmployees)}
}

type personDoc struct {
	ID             int64  `bson:"_id"`
	FirstName      string `bson:"first_name"`
	LastName       string `bson:"last_name"`
	MiddleName     string `bson:"middle_name,omitempty"`
	PassportNumber string `bson:"passport_number"`
	PhoneNumber    string `bson:"phone_number"`
	Email          string `bson:"email"`
}

type positionDoc struct {
	ID   int64  `bson:"_id"`
	Name string `bson:"name"`
}

type employeeDoc struct {
	ID         int64        `bson:"_id"`
	PersonID   int64        `bson:"person_id"`
	PositionID int64        `bson:"position_id"`
	Salary     float64      `bson:"salary"`
	HireDate   time.Time    `bson:"hire_date"`
	Person     *personDoc   `bson:"person,omitempty"`
	Position   *positionDoc `bson:"position,omitempty"`
}

func (d *employeeDoc) toDomain() *domain.Employee {
	e := &domain.Employee{
		ID:       d.ID,
		Salary:   d.Salary,
		HireDate: d.HireDate,
		Person:   domain.Person{ID: d.PersonID},
		Position: domain.Position{ID: d.PositionID},
	}
	if p := d.Person; p != nil {
		e.Person = domain.Person{
			ID:             p.ID,
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			MiddleName:     p.MiddleName,
			PassportNumber: p.PassportNumber,
			PhoneNumber:    p.PhoneNumber,
			Email:          p.Email,
		}
	}
	if p := d.Position; p != nil {
		e.Position = domain.Position{ID: p.ID, Name: p.Name}
	}
	return e
}

// joined builds the lookup pipeline; match may be nil.
func joined(match bson.M) mongo.Pipeline {
	var p mongo.Pipeline
	if match != nil {
		p = append(p, bson.D{{Key: "$match", Value: match}})
	}
	return append(p,
		bson.D{{Key: "$lookup", Value: bson.M{"from": collectionPeople, "localField": "person_id", "foreignField": "_id", "as": "person"}}},
		bson.D{{Key: "$unwind", Value: bson.M{"path": "$person", "preserveNullAndEmptyArrays": true}}},
		bson.D{{Key: "$lookup", Value: bson.M{"from": collectionPositions, "localField": "position_id", "foreignField": "_id", "as": "position"}}},
		bson.D{{Key: "$unwind", Value: bson.M{"path": "$position", "preserveNullAndEmptyArrays": true}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)
}

func (r *EmployeeRepository) aggregate(ctx context.Context, match bson.M) ([]*domain.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, joined(match))
	if err != nil {
		return nil, fmt.Errorf("aggregate employees: %w", err)
	}
	var docs []employeeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode employees: %w", err)
	}

	out := make([]*domain.Employee, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*domain.Employee, error) {
	found, err := r.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrEmployeeNotFound
	}
	return found[0], nil
}

func (r *EmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	return r.aggregate(ctx, nil)
}
