package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOrgCache_PutThenGet(t *testing.T) {
	c := NewOrgCache(time.Hour)
	_, _, ok := c.Get("user-1")
	require.False(t, ok)

	c.Put("user-1", []string{"org-a", "org-b"}, "org-a")
	orgs, current, ok := c.Get("user-1")
	require.True(t, ok)
	require.Equal(t, []string{"org-a", "org-b"}, orgs)
	require.Equal(t, "org-a", current)
}

func TestOrgCache_ExpiresEntries(t *testing.T) {
	c := NewOrgCache(time.Millisecond)
	c.Put("user-1", []string{"org-a"}, "org-a")
	time.Sleep(5 * time.Millisecond)

	_, _, ok := c.Get("user-1")
	require.False(t, ok, "entry should have expired")
}

func TestOrgCache_Clear(t *testing.T) {
	c := NewOrgCache(time.Hour)
	c.Put("user-1", []string{"org-a"}, "org-a")
	c.Clear()

	_, _, ok := c.Get("user-1")
	require.False(t, ok)
}
