package recorder

// captureScript is injected into every recorded page. It derives the
// same locator forms the replay side resolves: id first, then an
// identifying attribute scoped to the enclosing form, then classes or
// the bare tag, with interactive-candidate substitution so a click on a
// <span> inside a <button> is recorded against the button.
const captureScript = `
(function() {
	if (window.__replayCapture) return;

	var INTERACTIVE_TAGS = {a:1, button:1, input:1, select:1, textarea:1, option:1, label:1, summary:1};
	var INTERACTIVE_ROLES = {button:1, link:1, checkbox:1, radio:1, menuitem:1, tab:1, 'switch':1, option:1, combobox:1, textbox:1};
	var IDENTIFYING_ATTRS = ['name', 'aria-label', 'data-testid', 'href', 'title', 'alt', 'placeholder'];
	var SPECIAL_KEYS = {Enter:1, Tab:1, Escape:1, Backspace:1, Delete:1, Home:1, End:1,
		PageUp:1, PageDown:1, ArrowUp:1, ArrowDown:1, ArrowLeft:1, ArrowRight:1};

	function isInteractive(el) {
		if (INTERACTIVE_TAGS[el.tagName.toLowerCase()]) return true;
		var role = (el.getAttribute('role') || '').toLowerCase();
		if (INTERACTIVE_ROLES[role]) return true;
		return el.hasAttribute('onclick') || el.hasAttribute('tabindex');
	}

	function contains(outer, inner) {
		return outer.left <= inner.left && outer.top <= inner.top &&
			outer.right >= inner.right && outer.bottom >= inner.bottom;
	}

	function closest(el, pred) {
		for (var cur = el; cur && cur.nodeType === 1; cur = cur.parentElement) {
			if (pred(cur)) return cur;
		}
		return null;
	}

	function firstDescendant(el, pred) {
		var all = el.querySelectorAll('*');
		for (var i = 0; i < all.length; i++) {
			if (pred(all[i])) return all[i];
		}
		return null;
	}

	function interactiveCandidate(el) {
		if (isInteractive(el)) return el;
		var anc = closest(el.parentElement, isInteractive);
		if (anc && contains(anc.getBoundingClientRect(), el.getBoundingClientRect())) return anc;
		var desc = firstDescendant(el, isInteractive);
		if (desc && contains(el.getBoundingClientRect(), desc.getBoundingClientRect())) return desc;
		return el;
	}

	function isIdentifying(el) {
		if (el.id) return true;
		for (var i = 0; i < IDENTIFYING_ATTRS.length; i++) {
			if (el.getAttribute(IDENTIFYING_ATTRS[i])) return true;
		}
		return false;
	}

	function simpleLocator(el) {
		var tag = el.tagName.toLowerCase();
		var classes = (el.className && typeof el.className === 'string')
			? el.className.trim().split(/\s+/).filter(Boolean).sort() : [];
		return classes.length ? tag + '.' + classes.join('.') : tag;
	}

	function formLocator(form) {
		if (form.id) return '#' + form.id;
		var name = form.getAttribute('name');
		return name ? 'form[name="' + name + '"]' : 'form';
	}

	function buildLocator(el) {
		if (el.id) return '#' + el.id;
		var tag = el.tagName.toLowerCase();
		var name = el.getAttribute('name');
		if (name) {
			var loc = tag + '[name="' + name + '"]';
			var form = closest(el, function(c) { return c.tagName.toLowerCase() === 'form'; });
			return (form && form !== el) ? formLocator(form) + ' ' + loc : loc;
		}
		for (var i = 0; i < IDENTIFYING_ATTRS.length; i++) {
			var v = el.getAttribute(IDENTIFYING_ATTRS[i]);
			if (v) return tag + '[' + IDENTIFYING_ATTRS[i] + '="' + v + '"]';
		}
		return simpleLocator(el);
	}

	function deriveSelector(el) {
		var target = interactiveCandidate(el);
		var identifying = closest(target, isIdentifying);
		if (!identifying) identifying = firstDescendant(target, isIdentifying) || target;
		var locator = buildLocator(identifying);
		if (identifying !== target && identifying.contains(target)) {
			locator += ' ' + simpleLocator(target);
		}
		return {locator: locator, target: target};
	}

	function descriptiveText(el) {
		var text = (el.textContent || '').replace(/\s+/g, ' ').trim();
		if (!text) {
			var attrs = ['aria-label', 'title', 'placeholder', 'value', 'alt'];
			for (var i = 0; i < attrs.length; i++) {
				var v = el.getAttribute(attrs[i]);
				if (v) { text = v; break; }
			}
		}
		return text.slice(0, 80);
	}

	function frameChain() {
		var chain = [];
		try {
			var win = window;
			while (win !== win.parent && win.frameElement) {
				chain.unshift(deriveSelector(win.frameElement).locator);
				win = win.parent;
			}
		} catch (e) {
			// cross-origin parent: chain stops where access stops
		}
		return chain;
	}

	function eventTarget(event) {
		// composedPath sees through open shadow roots
		var path = event.composedPath ? event.composedPath() : [];
		return (path.length && path[0].nodeType === 1) ? path[0] : event.target;
	}

	window.__replayCapture = {
		events: [],
		drain: function() {
			var out = this.events;
			this.events = [];
			return out;
		},
		push: function(ev) { this.events.push(ev); }
	};

	function baseEvent(kind, event, el) {
		var derived = deriveSelector(el);
		return {
			kind: kind,
			event_type: event.type,
			selector: derived.locator,
			text_content: descriptiveText(derived.target),
			frame_chain: frameChain(),
			modifiers: {alt: event.altKey, ctrl: event.ctrlKey, meta: event.metaKey, shift: event.shiftKey},
			timestamp: Date.now()
		};
	}

	['click', 'dblclick', 'contextmenu'].forEach(function(type) {
		document.addEventListener(type, function(event) {
			if (!event.isTrusted) return;
			var el = eventTarget(event);
			if (!el || el.nodeType !== 1) return;
			var ev = baseEvent('mouse', event, el);
			ev.x = event.clientX;
			ev.y = event.clientY;
			window.__replayCapture.push(ev);
		}, true);
	});

	document.addEventListener('keydown', function(event) {
		if (!event.isTrusted) return;
		if (!SPECIAL_KEYS[event.key] && !(event.ctrlKey || event.metaKey)) return;
		var el = eventTarget(event);
		if (!el || el.nodeType !== 1) return;
		var ev = baseEvent('keyboard', event, el);
		ev.key = event.key;
		window.__replayCapture.push(ev);
	}, true);

	// Free text is recorded once per field as the final value rather
	// than as individual keystrokes.
	document.addEventListener('change', function(event) {
		if (!event.isTrusted) return;
		var el = eventTarget(event);
		if (!el || !el.tagName) return;
		var tag = el.tagName.toLowerCase();
		if (tag !== 'input' && tag !== 'textarea' && tag !== 'select') return;
		var ev = baseEvent('keyboard', event, el);
		ev.event_type = 'keydown';
		ev.key = el.value || '';
		window.__replayCapture.push(ev);
	}, true);
})();
`
