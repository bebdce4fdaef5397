package widget

import "fmt"

// EmbedScript renders the loader served at /widget.js. Included on a host
// page it injects a fixed-size transparent always-on-top iframe pointing at
// the widget page, guards against double injection with a page-global flag,
// and enables pointer interactivity once the frame has loaded.
func EmbedScript(widgetURL string) string {
	return fmt.Sprintf(`(function() {
  'use strict';

  var WIDGET_URL = %q;

  if (window.galleryAgentLoaded) return;
  window.galleryAgentLoaded = true;

  var container = document.createElement('div');
  container.id = 'gallery-agent-container';
  container.style.cssText = 'position:fixed;bottom:0;right:0;width:420px;height:580px;z-index:2147483647;pointer-events:none;';

  var iframe = document.createElement('iframe');
  iframe.src = WIDGET_URL;
  iframe.id = 'gallery-agent-frame';
  iframe.style.cssText = 'width:100%%;height:100%%;border:none;background:transparent;';
  iframe.setAttribute('allowtransparency', 'true');

  iframe.onload = function() {
    container.style.pointerEvents = 'auto';
  };

  container.appendChild(iframe);

  if (document.body) {
    document.body.appendChild(container);
  } else {
    document.addEventListener('DOMContentLoaded', function() {
      document.body.appendChild(container);
    });
  }
})();
`, widgetURL)
}
