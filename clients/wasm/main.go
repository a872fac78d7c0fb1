//go:build js && wasm

// imagestub WASM — client-side placeholder renderer.
// Compiled with: GOOS=js GOARCH=wasm go build -o imagestub.wasm ./clients/wasm/
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/xob0t/imagestub/pkg/generator"
	"github.com/xob0t/imagestub/pkg/params"
	"github.com/xob0t/imagestub/pkg/render"
)

// The active renderer; replaced when a font is registered.
var (
	rendererMu sync.RWMutex
	renderer   *render.Renderer
)

func main() {
	r, err := render.NewRenderer("")
	if err != nil {
		fmt.Println("imagestub WASM: renderer:", err)
		return
	}
	renderer = r
	fmt.Println("imagestub WASM loaded")

	// Register JS-callable functions.
	js.Global().Set("goParseColor", js.FuncOf(parseColor))
	js.Global().Set("goParseResolution", js.FuncOf(parseResolution))
	js.Global().Set("goRenderPlaceholder", js.FuncOf(renderPlaceholder))
	js.Global().Set("goRenderQR", js.FuncOf(renderQR))
	js.Global().Set("goRegisterFont", js.FuncOf(registerFont))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

func currentRenderer() *render.Renderer {
	rendererMu.RLock()
	defer rendererMu.RUnlock()
	return renderer
}

// goParseColor(raw) — JSON colour diagnosis.
func parseColor(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need raw")
	}
	out, err := json.Marshal(params.Inspect(args[0].String()))
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}
	return js.ValueOf(string(out))
}

// goParseResolution(raw) — {width, height}.
func parseResolution(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need raw")
	}
	res := params.ParseResolution(args[0].String())
	return js.ValueOf(map[string]interface{}{
		"width":  int(res.Width),
		"height": int(res.Height),
	})
}

// goRenderPlaceholder(width, height, bg, fg, text[, format]) — base64 image.
func renderPlaceholder(this js.Value, args []js.Value) interface{} {
	return renderBase64(args, false)
}

// goRenderQR(width, height, bg, fg, text[, format]) — base64 QR image.
func renderQR(this js.Value, args []js.Value) interface{} {
	return renderBase64(args, true)
}

func renderBase64(args []js.Value, qr bool) interface{} {
	if len(args) < 5 {
		return js.ValueOf("error: need width, height, bg, fg, text")
	}

	format := generator.PNG
	if len(args) > 5 && args[5].String() != "" {
		f, err := generator.ParseFormat(args[5].String())
		if err != nil {
			return js.ValueOf("error: " + err.Error())
		}
		format = f
	}

	desc := params.Describe(int32(args[0].Int()), int32(args[1].Int()), args[2].String(), args[3].String(), args[4].String())

	var buf bytes.Buffer
	cfg := generator.Config{Description: desc, Format: format, QR: qr}
	if err := generator.GenerateToWriter(&buf, currentRenderer(), cfg); err != nil {
		return js.ValueOf("error: render: " + err.Error())
	}

	return js.ValueOf(base64.StdEncoding.EncodeToString(buf.Bytes()))
}

// goRegisterFont(name, base64Data) — render captions with an uploaded font.
func registerFont(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("error: need name, base64Data")
	}

	data, err := base64.StdEncoding.DecodeString(args[1].String())
	if err != nil {
		return js.ValueOf("error: invalid base64: " + err.Error())
	}

	r, err := render.NewRendererFromBytes(args[0].String(), data)
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	rendererMu.Lock()
	renderer = r
	rendererMu.Unlock()

	return js.ValueOf("ok")
}
