package main

import (
	// Register renderers and sources via side-effects
	_ "vortexconv/internal/render/clash"
	_ "vortexconv/internal/render/quantumult"
	_ "vortexconv/internal/render/singbox"
	_ "vortexconv/internal/render/surge"
	_ "vortexconv/internal/render/v2ray"
	_ "vortexconv/internal/render/xray"
	_ "vortexconv/internal/source/file"
	_ "vortexconv/internal/source/http"
)

func main() {
	Execute()
}
