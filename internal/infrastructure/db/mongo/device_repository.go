package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/devicemanager/api/internal/core/domain"
)

// DeviceRepository implements ports.DeviceRepository. Devices reference their
// type by id; reads join the type name back in.
type DeviceRepository struct {
	col   *mongo.Collection
	types *mongo.Collection
	seq   *sequences
}

func NewDeviceRepository(db *mongo.Database) *DeviceRepository {
	return &DeviceRepository{
		col:   db.Collection(collectionDevices),
		types: db.Collection(collectionDeviceTypes),
		seq:   newSequences(db),
	}
}

type deviceTypeDoc struct {
	ID   int64  `bson:"_id"`
	Name string `bson:"name"`
}

type deviceDoc struct {
	ID           int64          `bson:"_id"`
	Name         string         `bson:"name"`
	DeviceTypeID int64          `bson:"device_type_id"`
	IsEnabled    bool           `bson:"is_enabled"`
	Properties   string         `bson:"additional_properties"`
	Type         *deviceTypeDoc `bson:"type,omitempty"`
}

func (d *deviceDoc) toDomain() *domain.Device {
	dev := &domain.Device{
		ID:           d.ID,
		Name:         d.Name,
		DeviceTypeID: d.DeviceTypeID,
		IsEnabled:    d.IsEnabled,
		Properties:   d.Properties,
	}
	if d.Type != nil {
		dev.DeviceTypeName = d.Type.Name
	}
	if dev.Properties == "" {
		dev.Properties = domain.EmptyProperties
	}
	return dev
}

func (r *DeviceRepository) Create(ctx context.Context, d *domain.Device) (*domain.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.next(ctx, collectionDevices)
	if err != nil {
		return nil, err
	}

	doc := deviceDoc{
		ID:           id,
		Name:         d.Name,
		DeviceTypeID: d.DeviceTypeID,
		IsEnabled:    d.IsEnabled,
		Properties:   d.Properties,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert device: %w", err)
	}

	created := doc.toDomain()
	created.DeviceTypeName = d.DeviceTypeName
	return created, nil
}

func (r *DeviceRepository) aggregate(ctx context.Context, match bson.M) ([]*domain.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$lookup", Value: bson.M{"from": collectionDeviceTypes, "localField": "device_type_id", "foreignField": "_id", "as": "type"}}},
		bson.D{{Key: "$unwind", Value: bson.M{"path": "$type", "preserveNullAndEmptyArrays": true}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate devices: %w", err)
	}
	var docs []deviceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}

	out := make([]*domain.Device, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *DeviceRepository) FindByID(ctx context.Context, id int64) (*domain.Device, error) {
	found, err := r.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrDeviceNotFound
	}
	return found[0], nil
}

// FindByIDs returns the devices that exist among ids, ordered by id.
func (r *DeviceRepository) FindByIDs(ctx context.Context, ids []int64) ([]*domain.Device, error) {
	if len(ids) == 0 {
		return []*domain.Device{}, nil
	}
	return r.aggregate(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *DeviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	return r.aggregate(ctx, bson.M{})
}

func (r *DeviceRepository) Update(ctx context.Context, d *domain.Device) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": d.ID}, bson.M{"$set": bson.M{
		"name":                  d.Name,
		"device_type_id":        d.DeviceTypeID,
		"is_enabled":            d.IsEnabled,
		"additional_properties": d.Properties,
	}})
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepository) FindTypeByName(ctx context.Context, name string) (*domain.DeviceType, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc deviceTypeDoc
	if err := r.types.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDeviceTypeNotFound
		}
		return nil, fmt.Errorf("find device type: %w", err)
	}
	return &domain.DeviceType{ID: doc.ID, Name: doc.Name}, nil
}
