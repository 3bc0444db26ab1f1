package store_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/trigpoint-web/backend"
	"github.com/jrsteele09/trigpoint-web/internal/utils"
	"github.com/jrsteele09/trigpoint-web/store"
	"github.com/stretchr/testify/require"
)

func TestNormalizeShedInput(t *testing.T) {
	tests := []struct {
		name                   string
		shed, desc, visibility string
		want                   backend.ShedInput
		wantErr                string
	}{
		{
			name: "defaults",
			want: backend.ShedInput{Name: store.DefaultShedName, Visibility: backend.VisibilityPrivate},
		},
		{
			name:       "trimmed and lowered",
			shed:       "  Garage ",
			desc:       " Trail bikes ",
			visibility: "Public",
			want:       backend.ShedInput{Name: "Garage", Description: utils.Ptr("Trail bikes"), Visibility: backend.VisibilityPublic},
		},
		{
			name:       "blank description is null",
			shed:       "Garage",
			desc:       "   ",
			visibility: "unlisted",
			want:       backend.ShedInput{Name: "Garage", Visibility: backend.VisibilityUnlisted},
		},
		{
			name:       "unknown visibility",
			visibility: "friends",
			wantErr:    "Visibility must be private, unlisted or public.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.NormalizeShedInput(tt.shed, tt.desc, tt.visibility)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestShedStore_CreateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in, err := store.NormalizeShedInput("", "", "")
	require.NoError(t, err)

	// Sheds have no media step, so a hero is ignored.
	id, err := f.sheds.Create(ctx, in, &backend.Media{Data: []byte{1}})
	require.NoError(t, err)
	require.Equal(t, "s1", id)

	st := f.sheds.State()
	require.Equal(t, "Shed created.", st.Message)
	require.Equal(t, store.Done, st.Phase)
	require.Equal(t, store.DefaultShedName, st.Items[0].Name)

	path, ok := f.redirect(t)
	require.True(t, ok)
	require.Equal(t, "/sheds/s1", path)
	require.Equal(t, "Loading shed...", f.nav.State().Message)

	require.NoError(t, f.sheds.Delete(ctx, "s1"))
	st = f.sheds.State()
	require.Empty(t, st.Items)
	require.Equal(t, "Shed deleted.", st.Message)
	require.False(t, st.Loading)
}

func TestShedStore_DetailHook(t *testing.T) {
	f := newFixture(t)
	f.api.AddShed(backend.Shed{ID: "s9", Name: "Van", Visibility: backend.VisibilityPublic})

	err := f.sheds.DetailHook("shed_id")(context.Background(), map[string]string{"shed_id": "s9"})
	require.NoError(t, err)
	require.Equal(t, "Van", f.sheds.State().Current.Name)
}
