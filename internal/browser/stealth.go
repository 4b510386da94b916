// internal/browser/stealth.go
package browser

import "fmt"

// stealthScript masks the signals anti-bot systems use to recognize a driven
// browser. It is injected before any page script runs so detection code never
// observes the unpatched values.
const stealthScript = `
(() => {
    'use strict';

    if (window.__patched) {
        return;
    }
    window.__patched = true;

    // navigator.webdriver is the primary automation tell.
    Object.defineProperty(navigator, 'webdriver', {
        get: () => undefined,
        configurable: true
    });

    // Headless Chrome ships without plugins; real browsers always expose the
    // internal PDF viewer.
    Object.defineProperty(navigator, 'plugins', {
        get: () => {
            const plugins = [
                { name: 'PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
                { name: 'Chrome PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
                { name: 'Chromium PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' }
            ];
            plugins.item = (i) => plugins[i] || null;
            plugins.namedItem = (name) => plugins.find((p) => p.name === name) || null;
            return plugins;
        },
        configurable: true
    });

    Object.defineProperty(navigator, 'languages', {
        get: () => ['en-US', 'en'],
        configurable: true
    });

    // window.chrome exists on every real Chrome, headless or not patched out.
    if (!window.chrome) {
        window.chrome = { runtime: {} };
    }

    // Notification permission queries behave differently under automation.
    const originalQuery = window.navigator.permissions.query;
    window.navigator.permissions.query = (parameters) => (
        parameters.name === 'notifications'
            ? Promise.resolve({ state: Notification.permission })
            : originalQuery(parameters)
    );
})();
`

// webglSpoofTemplate overrides the UNMASKED_VENDOR_WEBGL and
// UNMASKED_RENDERER_WEBGL parameters so the reported GPU matches the
// identity's profile instead of the host machine.
const webglSpoofTemplate = `
(() => {
    'use strict';

    const vendor = %q;
    const renderer = %q;

    const patch = (proto) => {
        const original = proto.getParameter;
        proto.getParameter = function (parameter) {
            if (parameter === 37445) { // UNMASKED_VENDOR_WEBGL
                return vendor;
            }
            if (parameter === 37446) { // UNMASKED_RENDERER_WEBGL
                return renderer;
            }
            return original.call(this, parameter);
        };
    };

    if (window.WebGLRenderingContext) {
        patch(WebGLRenderingContext.prototype);
    }
    if (window.WebGL2RenderingContext) {
        patch(WebGL2RenderingContext.prototype);
    }
})();
`

func webglSpoofScript(vendor, renderer string) string {
	return fmt.Sprintf(webglSpoofTemplate, vendor, renderer)
}
