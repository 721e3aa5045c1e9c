package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type priced struct {
	Price decimal.Decimal `bson:"price"`
}

func TestDecimalCodec_GuardaComoString(t *testing.T) {
	reg := newRegistry()

	data, err := bson.MarshalWithRegistry(reg, priced{Price: decimal.RequireFromString("6.3125")})
	require.NoError(t, err)

	v := bson.Raw(data).Lookup("price")
	s, ok := v.StringValueOK()
	require.True(t, ok, "el decimal se guarda como string")
	assert.Equal(t, "6.3125", s)

	var out priced
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
	assert.True(t, out.Price.Equal(decimal.RequireFromString("6.3125")))
}

func TestDecimalCodec_AceptaNumerosYNull(t *testing.T) {
	reg := newRegistry()
	tests := []struct {
		name string
		doc  bson.D
		want string
	}{
		{"double", bson.D{{Key: "price", Value: 4.5}}, "4.5"},
		{"int32", bson.D{{Key: "price", Value: int32(7)}}, "7"},
		{"int64", bson.D{{Key: "price", Value: int64(10000)}}, "10000"},
		{"null", bson.D{{Key: "price", Value: nil}}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := bson.Marshal(tt.doc)
			require.NoError(t, err)

			var out priced
			require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
			assert.True(t, out.Price.Equal(decimal.RequireFromString(tt.want)), "obtenido %s", out.Price)
		})
	}
}

func TestDecimalCodec_RechazaStringInvalido(t *testing.T) {
	data, err := bson.Marshal(bson.D{{Key: "price", Value: "seis"}})
	require.NoError(t, err)

	var out priced
	assert.Error(t, bson.UnmarshalWithRegistry(newRegistry(), data, &out))
}
