// File: internal/netmon/script.go
package netmon

// monitoringScript patches fetch and XMLHttpRequest inside the page so every
// request, response and failure is posted back to the host with a synthetic
// correlation id.
const monitoringScript = `
// Network monitoring injection
(function() {
    const originalFetch = window.fetch;

    // Monitor fetch requests
    window.fetch = function(...args) {
        const request = {
            id: 'fetch_' + Date.now() + '_' + Math.random(),
            method: args[1]?.method || 'GET',
            url: args[0].toString(),
            headers: Object.fromEntries((args[1]?.headers || new Headers())),
            body: args[1]?.body || null,
            timestamp: Date.now(),
            initiator: 'fetch',
            resource_type: 'fetch'
        };

        window.parent.postMessage({
            type: 'network_request',
            data: request
        }, '*');

        return originalFetch.apply(this, args).then(response => {
            const responseData = {
                request_id: request.id,
                status_code: response.status,
                status_text: response.statusText,
                headers: Object.fromEntries(response.headers),
                timestamp: Date.now(),
                from_cache: false,
                mime_type: response.headers.get('content-type') || 'unknown'
            };

            window.parent.postMessage({
                type: 'network_response',
                data: responseData
            }, '*');

            return response;
        }).catch(error => {
            window.parent.postMessage({
                type: 'network_error',
                data: {
                    request_id: request.id,
                    error: error.message
                }
            }, '*');
            throw error;
        });
    };

    // Monitor XMLHttpRequest
    const xhrProto = XMLHttpRequest.prototype;
    const originalOpen = xhrProto.open;
    const originalSend = xhrProto.send;

    xhrProto.open = function(method, url, ...args) {
        this._tinkerRequest = {
            id: 'xhr_' + Date.now() + '_' + Math.random(),
            method: method,
            url: url,
            headers: {},
            timestamp: Date.now(),
            initiator: 'xhr',
            resource_type: 'xhr'
        };
        return originalOpen.apply(this, [method, url, ...args]);
    };

    xhrProto.send = function(body) {
        if (this._tinkerRequest) {
            this._tinkerRequest.body = body;

            window.parent.postMessage({
                type: 'network_request',
                data: this._tinkerRequest
            }, '*');

            this.addEventListener('load', () => {
                const responseData = {
                    request_id: this._tinkerRequest.id,
                    status_code: this.status,
                    status_text: this.statusText,
                    headers: this.getAllResponseHeaders().split('\r\n')
                        .filter(line => line)
                        .reduce((headers, line) => {
                            const [key, value] = line.split(': ');
                            headers[key] = value;
                            return headers;
                        }, {}),
                    body: this.responseText,
                    timestamp: Date.now(),
                    size: this.responseText.length,
                    from_cache: false,
                    mime_type: this.getResponseHeader('content-type') || 'unknown'
                };

                window.parent.postMessage({
                    type: 'network_response',
                    data: responseData
                }, '*');
            });

            this.addEventListener('error', () => {
                window.parent.postMessage({
                    type: 'network_error',
                    data: {
                        request_id: this._tinkerRequest.id,
                        error: 'XMLHttpRequest failed'
                    }
                }, '*');
            });
        }

        return originalSend.apply(this, [body]);
    };

    console.log('Tinker network monitoring injected successfully');
})();
`

// MonitoringScript returns the page-side instrumentation for fetch and XHR.
func (m *Monitor) MonitoringScript() string {
	return monitoringScript
}
