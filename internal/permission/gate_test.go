package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/requestcontext"
)

func TestStaticGate(t *testing.T) {
	gate := NewStaticGate(CapAssetWrite)
	ctx := requestcontext.WithActor(context.Background(), "amelia")

	assert.NoError(t, gate.Check(ctx, CapAssetWrite))

	err := gate.Check(ctx, CapAssetDelete)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermission))

	err = gate.Check(context.Background(), CapAssetWrite)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePermission))
}
