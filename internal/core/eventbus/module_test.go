package eventbus

import (
	"testing"

	pkgif "github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// TestModule_Load 测试 Fx 模块加载
func TestModule_Load(t *testing.T) {
	var loaded pkgif.EventBus

	app := fxtest.New(t,
		Module(),
		fx.Populate(&loaded),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.NotNil(t, loaded)
}
