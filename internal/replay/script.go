package replay

// replayScript is injected once per session. It resolves locators
// through open shadow roots and same-origin frames, disambiguates by
// recorded text, and dispatches synthetic events with the recorded
// modifier state. Script payloads run via the target frame's own
// window, never in a privileged context.
const replayScript = `
(function() {
	if (window.__replayRun) return;

	var SPECIAL_KEYS = {Enter:1, Tab:1, Escape:1, Backspace:1, Delete:1, Home:1, End:1,
		PageUp:1, PageDown:1, ArrowUp:1, ArrowDown:1, ArrowLeft:1, ArrowRight:1,
		Shift:1, Control:1, Alt:1, Meta:1, ' ':1};

	function collectRoots(doc, out) {
		out.push(doc);
		var all = doc.querySelectorAll('*');
		for (var i = 0; i < all.length; i++) {
			var el = all[i];
			if (el.shadowRoot) collectRoots(el.shadowRoot, out);
			if (el.tagName === 'IFRAME') {
				try {
					if (el.contentDocument) collectRoots(el.contentDocument, out);
				} catch (e) {
					// cross-origin frame: skip silently
				}
			}
		}
		return out;
	}

	function queryAll(selector) {
		var roots = collectRoots(document, []);
		var matches = [];
		for (var i = 0; i < roots.length; i++) {
			try {
				var found = roots[i].querySelectorAll(selector);
				for (var j = 0; j < found.length; j++) matches.push(found[j]);
			} catch (e) {
				// locator not expressible for this root
			}
		}
		return matches;
	}

	function textOf(el) {
		return (el.textContent || '').replace(/\s+/g, ' ').trim().slice(0, 80);
	}

	function resolve(selector, text) {
		var matches = queryAll(selector);
		if (matches.length === 0) return null;
		if (matches.length === 1) return matches[0];
		for (var i = 0; i < matches.length; i++) {
			if (textOf(matches[i]) === text || matches[i].getAttribute('title') === text) {
				return matches[i];
			}
		}
		return null;
	}

	function keyTokens(key) {
		if (!key) return [];
		if (key.length === 1 || SPECIAL_KEYS[key]) return [key];
		return key.split('');
	}

	function fail(msg) { return {ok: false, error: msg}; }
	var OK = {ok: true, error: ''};

	window.__replayRun = {
		mouse: function(args) {
			var el = resolve(args.selector, args.text);
			if (!el) return fail('no unique match for ' + args.selector);
			el.scrollIntoView({block: 'center'});
			var mods = args.modifiers || {};
			['mousedown', 'mouseup', args.event_type].forEach(function(type) {
				el.dispatchEvent(new MouseEvent(type, {
					bubbles: true, cancelable: true, composed: true, view: window,
					clientX: args.x, clientY: args.y,
					altKey: !!mods.alt, ctrlKey: !!mods.ctrl,
					metaKey: !!mods.meta, shiftKey: !!mods.shift
				}));
			});
			if (args.event_type === 'click' && typeof el.click === 'function') el.click();
			return OK;
		},

		keyboard: function(args) {
			var el = resolve(args.selector, args.text);
			if (!el) return fail('no unique match for ' + args.selector);
			el.focus && el.focus();
			var mods = args.modifiers || {};
			var tokens = keyTokens(args.key);
			for (var i = 0; i < tokens.length; i++) {
				['keydown', 'keyup'].forEach(function(type) {
					el.dispatchEvent(new KeyboardEvent(type, {
						bubbles: true, cancelable: true, composed: true,
						key: tokens[i],
						altKey: !!mods.alt, ctrlKey: !!mods.ctrl,
						metaKey: !!mods.meta, shiftKey: !!mods.shift
					}));
				});
			}
			// typing into a field also updates its value
			if ('value' in el && tokens.length && !SPECIAL_KEYS[args.key]) {
				el.value = args.key;
				el.dispatchEvent(new Event('input', {bubbles: true}));
				el.dispatchEvent(new Event('change', {bubbles: true}));
			}
			return OK;
		},

		script: function(args) {
			var win = window;
			if (args.frame_href && args.frame_href !== window.location.href) {
				win = null;
				var frames = collectRoots(document, []);
				for (var i = 0; i < frames.length; i++) {
					var view = frames[i].defaultView;
					if (view && view.location && view.location.href === args.frame_href) {
						win = view;
						break;
					}
				}
				if (!win) return fail('frame not reachable: ' + args.frame_href);
			}
			try {
				win.eval(args.code);
				return OK;
			} catch (e) {
				return fail('script failed: ' + (e && e.message ? e.message : String(e)));
			}
		}
	};
})();
`
