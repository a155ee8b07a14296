/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package attributes

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/devping/pkg/kv"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
)

var (
	testTenant = uuid.MustParse("5a1f0f1e-8d52-4a53-9b8e-3c0e4a0f8c11")
	testDevice = uuid.MustParse("0e4f7a32-2b1c-4c0d-8f6a-7d8e9f0a1b2c")
)

func TestKVServiceSaveAndFind(t *testing.T) {
	ctx := context.Background()
	svc := NewKVService(kv.NewMemoryStore(), logger.NewTestLogger())

	err := svc.Save(ctx, testTenant, testDevice, ServerScope, []Entry{
		NewLongEntry(models.AttributeLastActivityTime, 1700000000000, 1700000000000),
		NewBooleanEntry(models.AttributeActive, true, 1700000000000),
	})
	require.NoError(t, err)

	result, err := svc.Find(ctx, testTenant, testDevice, ServerScope, ActivityKeys)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)

	last, ok := result.Get(models.AttributeLastActivityTime)
	require.True(t, ok)

	v, ok := last.LongValue()
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), v)

	active, ok := result.Get(models.AttributeActive)
	require.True(t, ok)

	b, ok := active.BooleanValue()
	require.True(t, ok)
	assert.True(t, b)
}

func TestKVServiceFindMissingKeys(t *testing.T) {
	svc := NewKVService(kv.NewMemoryStore(), logger.NewTestLogger())

	result, err := svc.Find(context.Background(), testTenant, testDevice, ServerScope, ActivityKeys)
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Empty(t, result.Errors)
}

func TestKVServiceScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := NewKVService(kv.NewMemoryStore(), logger.NewTestLogger())

	require.NoError(t, svc.Save(ctx, testTenant, testDevice, ClientScope, []Entry{
		NewBooleanEntry(models.AttributeActive, true, 1),
	}))

	result, err := svc.Find(ctx, testTenant, testDevice, ServerScope, ActivityKeys)
	require.NoError(t, err)

	_, ok := result.Get(models.AttributeActive)
	assert.False(t, ok)
}

func TestKVServiceFindPerKeyFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := kv.NewMockKVStore(ctrl)

	storeErr := errors.New("bucket unavailable")
	activeData := []byte(`{"key":"active","type":"BOOLEAN","value":false,"lastUpdateTs":1}`)

	store.EXPECT().
		Get(gomock.Any(), StoreKey(testTenant, testDevice, ServerScope, models.AttributeLastActivityTime)).
		Return(nil, false, storeErr)
	store.EXPECT().
		Get(gomock.Any(), StoreKey(testTenant, testDevice, ServerScope, models.AttributeActive)).
		Return(activeData, true, nil)

	svc := NewKVService(store, logger.NewTestLogger())

	result, err := svc.Find(context.Background(), testTenant, testDevice, ServerScope, ActivityKeys)
	require.NoError(t, err)

	require.ErrorIs(t, result.Err(models.AttributeLastActivityTime), storeErr)
	assert.NoError(t, result.Err(models.AttributeActive))

	active, ok := result.Get(models.AttributeActive)
	require.True(t, ok)

	b, ok := active.BooleanValue()
	require.True(t, ok)
	assert.False(t, b)
}

func TestKVServiceIgnoresMalformedValues(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	require.NoError(t, store.Put(ctx,
		StoreKey(testTenant, testDevice, ServerScope, models.AttributeLastActivityTime),
		[]byte("not json"), 0))

	svc := NewKVService(store, logger.NewTestLogger())

	result, err := svc.Find(ctx, testTenant, testDevice, ServerScope, ActivityKeys)
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Empty(t, result.Errors)
}

func TestKVServiceRejectsBadArguments(t *testing.T) {
	ctx := context.Background()
	svc := NewKVService(kv.NewMemoryStore(), logger.NewTestLogger())

	_, err := svc.Find(ctx, testTenant, testDevice, Scope("ATTIC"), ActivityKeys)
	require.ErrorIs(t, err, errInvalidScope)

	_, err = svc.Find(ctx, testTenant, testDevice, ServerScope, nil)
	require.ErrorIs(t, err, errNoKeys)

	err = svc.Save(ctx, testTenant, testDevice, ServerScope, []Entry{{Type: TypeLong}})
	require.ErrorIs(t, err, errEmptyKey)

	result, err := svc.Find(ctx, testTenant, testDevice, ServerScope, []string{""})
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err(""), errEmptyKey)
}

func TestKVServiceDeduplicatesKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := kv.NewMockKVStore(ctrl)

	store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, nil).Times(1)

	svc := NewKVService(store, logger.NewTestLogger())

	_, err := svc.Find(context.Background(), testTenant, testDevice, ServerScope,
		[]string{models.AttributeActive, models.AttributeActive})
	require.NoError(t, err)
}
