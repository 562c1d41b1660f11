// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryAssign(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		want   []string
	}{
		{
			name:   "distinct names keep their stems",
			inputs: []string{"a.heic", "b.HEIC", "c.heif"},
			want:   []string{"a.jpg", "b.jpg", "c.jpg"},
		},
		{
			name:   "duplicate gets numeric suffix",
			inputs: []string{"a.heic", "a.heic"},
			want:   []string{"a.jpg", "a_1.jpg"},
		},
		{
			name:   "suffixes increase in input order",
			inputs: []string{"IMG.heic", "IMG.heif", "IMG.HEIC", "other.heic"},
			want:   []string{"IMG.jpg", "IMG_1.jpg", "IMG_2.jpg", "other.jpg"},
		},
		{
			name:   "suffixed input name does not collide",
			inputs: []string{"a.heic", "a_1.heic", "a.heic"},
			want:   []string{"a.jpg", "a_1.jpg", "a_2.jpg"},
		},
		{
			name:   "input shadowing an issued suffix",
			inputs: []string{"a.heic", "a.heic", "a_1.heic"},
			want:   []string{"a.jpg", "a_1.jpg", "a_1_1.jpg"},
		},
		{
			name:   "base names are case sensitive",
			inputs: []string{"Photo.heic", "photo.heic"},
			want:   []string{"Photo.jpg", "photo.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(".jpg")
			got := make([]string, len(tt.inputs))
			for i, in := range tt.inputs {
				got[i] = r.Assign(in)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryAssignIn(t *testing.T) {
	r := NewRegistry(".jpg")

	assert.Equal(t, "x.jpg", r.AssignIn("/out/a", "x.heic"))
	assert.Equal(t, "x.jpg", r.AssignIn("/out/b", "x.heic"), "different directories are independent")
	assert.Equal(t, "x_1.jpg", r.AssignIn("/out/a", "/src/other/x.heic"))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.heic", "photo.heic"},
		{"dir/photo.heic", "photo.heic"},
		{`C:\Users\me\photo.heic`, "photo.heic"},
		{"../../etc/passwd.heic", "passwd.heic"},
		{"what?.heic", "what_.heic"},
		{"..", ""},
		{"dir/", ""},
		{"  spaced.heic ", "spaced.heic"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "IMG_0001", Stem("/photos/IMG_0001.HEIC"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.heic"))
}
