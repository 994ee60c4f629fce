package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/adapters/sink/postgres"
	"github.com/okian/wastesync/internal/domain/model"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "food_name", "disposal_mass", "location", "session_id", "created_at"}

func TestRepository_Insert(t *testing.T) {
	t.Run("Should insert the batch in one statement", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := postgres.NewRepository(mockPool)
		ctx := context.Background()
		now := time.Now()
		lab := "Lab"
		var noLocation *string
		records := []model.Record{
			{FoodName: "Pizza", DisposalMass: 15.2, Location: "Lab", SessionID: "s1"},
			{FoodName: "Salad", DisposalMass: 8.7, SessionID: "s1"},
		}
		rows := mockPool.NewRows(columns).
			AddRow("1", "Pizza", 15.2, &lab, "s1", now).
			AddRow("2", "Salad", 8.7, noLocation, "s1", now)
		mockPool.ExpectQuery(`INSERT INTO food_waste \(food_name,disposal_mass,location,session_id\) VALUES \(\$1,\$2,\$3,\$4\),\(\$5,\$6,\$7,\$8\) RETURNING`).
			WithArgs("Pizza", 15.2, "Lab", "s1", "Salad", 8.7, nil, "s1").
			WillReturnRows(rows)
		stored, err := repo.Insert(ctx, model.TableName, records)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, "1", stored[0].ID)
		assert.Equal(t, "Lab", stored[0].Location)
		assert.Equal(t, "", stored[1].Location)
		assert.Equal(t, now, stored[1].CreatedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should not touch the database for an empty batch", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		stored, err := postgres.NewRepository(mockPool).Insert(context.Background(), model.TableName, nil)
		assert.NoError(t, err)
		assert.Nil(t, stored)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
	t.Run("Should wrap database errors", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		mockPool.ExpectQuery("INSERT INTO food_waste").
			WillReturnError(errors.New("relation does not exist"))
		_, err = postgres.NewRepository(mockPool).Insert(context.Background(), model.TableName, []model.Record{
			{FoodName: "Soup", DisposalMass: 1, SessionID: "s"},
		})
		assert.True(t, errors.Is(err, sink.ErrInsert))
		assert.Contains(t, err.Error(), "relation does not exist")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRepository_Recent(t *testing.T) {
	t.Run("Should select newest rows since a time", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		kitchen := "Kitchen"
		rows := mockPool.NewRows(columns).
			AddRow("7", "Rice", 3.0, &kitchen, "s2", since.Add(time.Hour))
		mockPool.ExpectQuery(`SELECT (.+) FROM food_waste WHERE created_at >= \$1 ORDER BY created_at DESC LIMIT 5`).
			WithArgs(since).
			WillReturnRows(rows)
		stored, err := postgres.NewRepository(mockPool).Recent(context.Background(), model.TableName, since, 5)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "Rice", stored[0].FoodName)
		assert.Equal(t, "Kitchen", stored[0].Location)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRepository_Ping(t *testing.T) {
	t.Run("Should report ping failures", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		mockPool.ExpectPing().WillReturnError(errors.New("connection refused"))
		err = postgres.NewRepository(mockPool).Ping(context.Background(), model.TableName)
		assert.True(t, errors.Is(err, sink.ErrPing))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
