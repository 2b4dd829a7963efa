package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Decode(t *testing.T) {
	data, err := Encode(MsgSubscribe, &SubscribeRequest{Topic: TopicEmployeesUpdated})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, MsgSubscribe, env.Type)

	var req SubscribeRequest
	require.NoError(t, env.Decode(&req))
	assert.Equal(t, TopicEmployeesUpdated, req.Topic)
}

func TestEncode_NilPayload(t *testing.T) {
	data, err := Encode(MsgPing, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ping"}`, string(data))

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	require.Error(t, env.Decode(&SyncRequest{}))
}

func TestRequests_Validate(t *testing.T) {
	tests := []struct {
		req     interface{ Validate() error }
		name    string
		wantErr bool
	}{
		{
			name:    "valid create",
			req:     &EntityCreateRequest{Employee: Employee{Name: "Anna", EmploymentType: "full_time"}},
			wantErr: false,
		},
		{
			name:    "create without name",
			req:     &EntityCreateRequest{Employee: Employee{Role: "cook"}},
			wantErr: true,
		},
		{
			name:    "valid update",
			req:     &EntityUpdateRequest{ID: "emp-1", ExpectedVersion: 3},
			wantErr: false,
		},
		{
			name:    "update without id",
			req:     &EntityUpdateRequest{ExpectedVersion: 3},
			wantErr: true,
		},
		{
			name:    "update with negative version",
			req:     &EntityUpdateRequest{ID: "emp-1", ExpectedVersion: -1},
			wantErr: true,
		},
		{
			name:    "delete without id",
			req:     &EntityDeleteRequest{},
			wantErr: true,
		},
		{
			name:    "subscribe to known topic",
			req:     &SubscribeRequest{Topic: TopicSystemAlerts},
			wantErr: false,
		},
		{
			name:    "subscribe to unknown topic",
			req:     &SubscribeRequest{Topic: "employees/archived"},
			wantErr: true,
		},
		{
			name:    "sync from zero is bootstrap",
			req:     &SyncRequest{SinceVersion: 0},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKnownTopic(t *testing.T) {
	assert.True(t, KnownTopic(TopicEmployeesCreated))
	assert.True(t, KnownTopic(TopicEmployeesDeleted))
	assert.False(t, KnownTopic("employees"))
	assert.False(t, KnownTopic(""))
}
