package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/entity"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
)

const lotsCollection = "grain_lots"

var (
	_ repository.LotRepository = (*LotRepository)(nil)
	_ grain.TxRunner           = (*LotRepository)(nil)
)

// lotDocument un documento por lote. Los campos de filtro se copian al primer nivel para indexarlos;
// revision es el contador de versión usado como compare-and-swap.
type lotDocument struct {
	ID              string              `bson:"_id"`
	FarmID          string              `bson:"farm_id"`
	Year            int                 `bson:"year"`
	CropType        string              `bson:"crop_type"`
	StorageLocation string              `bson:"storage_location"`
	FieldID         string              `bson:"field_id,omitempty"`
	Status          string              `bson:"status"`
	CreatedAt       time.Time           `bson:"created_at"`
	Revision        int64               `bson:"revision"`
	Lot             entity.InventoryLot `bson:"lot"`
}

func toDocument(l *entity.InventoryLot, revision int64) lotDocument {
	return lotDocument{
		ID:              l.ID,
		FarmID:          l.FarmID,
		Year:            l.Year,
		CropType:        l.CropType,
		StorageLocation: l.StorageLocation,
		FieldID:         l.FieldID,
		Status:          string(l.Status),
		CreatedAt:       l.CreatedAt,
		Revision:        revision,
		Lot:             *l,
	}
}

func (d *lotDocument) toEntity() *entity.InventoryLot {
	l := d.Lot
	l.Version = d.Revision
	return &l
}

// LotRepository lotes en MongoDB.
type LotRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewLotRepository conecta, verifica con Ping y prepara la colección grain_lots.
func NewLotRepository(ctx context.Context, uri, dbName string) (*LotRepository, error) {
	clientOptions := options.Client().ApplyURI(uri).SetRegistry(newRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("conectar mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &LotRepository{client: client, coll: client.Database(dbName).Collection(lotsCollection)}, nil
}

// EnsureIndexes crea los índices de consulta por granja/año/cultivo y por campo.
func (r *LotRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "year", Value: 1}, {Key: "crop_type", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "field_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("crear índices: %w", err)
	}
	return nil
}

// Run cada mutación toca un solo documento y el ReplaceOne condicionado por revision ya es
// atómico, así que fn corre sin sesión transaccional (no exige replica set).
func (r *LotRepository) Run(ctx context.Context, fn func(lotRepo repository.LotRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(r)
}

// Create inserta el lote con revision 1.
func (r *LotRepository) Create(ctx context.Context, lot *entity.InventoryLot) error {
	if lot.Version == 0 {
		lot.Version = 1
	}
	if _, err := r.coll.InsertOne(ctx, toDocument(lot, lot.Version)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &domain.ConflictError{Reason: "el lote " + lot.ID + " ya existe", Err: err}
		}
		return fmt.Errorf("insertar lote: %w", err)
	}
	return nil
}

// GetByID lote por id; (nil, nil) si no existe.
func (r *LotRepository) GetByID(ctx context.Context, id string) (*entity.InventoryLot, error) {
	var doc lotDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("obtener lote: %w", err)
	}
	return doc.toEntity(), nil
}

// GetForUpdate igual que GetByID; la exclusión la dan el lock por lote y la revision.
func (r *LotRepository) GetForUpdate(ctx context.Context, id string) (*entity.InventoryLot, error) {
	return r.GetByID(ctx, id)
}

// Update reemplaza el documento solo si su revision sigue siendo lot.Version.
func (r *LotRepository) Update(ctx context.Context, lot *entity.InventoryLot) error {
	next := lot.Version + 1
	doc := toDocument(lot, next)
	doc.Lot.Version = next
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": lot.ID, "revision": lot.Version}, doc)
	if err != nil {
		return fmt.Errorf("actualizar lote: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewTransientConflict("lote "+lot.ID+" modificado por otra operación", nil)
	}
	lot.Version = next
	return nil
}

// List lotes según filtro, ordenados por año, cultivo, ubicación y alta.
func (r *LotRepository) List(ctx context.Context, f repository.LotFilter) ([]*entity.InventoryLot, error) {
	filter := bson.M{}
	if f.FarmID != "" {
		filter["farm_id"] = f.FarmID
	}
	if f.Year != 0 {
		filter["year"] = f.Year
	}
	if f.CropType != "" {
		filter["crop_type"] = f.CropType
	}
	if f.StorageLocation != "" {
		filter["storage_location"] = f.StorageLocation
	}
	if f.FieldID != "" {
		filter["field_id"] = f.FieldID
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		filter["status"] = bson.M{"$in": statuses}
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "year", Value: 1},
		{Key: "crop_type", Value: 1},
		{Key: "storage_location", Value: 1},
		{Key: "created_at", Value: 1},
	})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit)).SetSkip(int64(f.Offset))
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listar lotes: %w", err)
	}
	var docs []lotDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decodificar lotes: %w", err)
	}
	out := make([]*entity.InventoryLot, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toEntity())
	}
	return out, nil
}

// Close cierra la conexión con MongoDB.
func (r *LotRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
