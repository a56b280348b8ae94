package page

// extractScript runs inside the page and returns the raw material for a
// snapshot: visible fields with derived selectors and labels, buttons,
// captcha hints, alert texts, step indicators, and body text. Selector
// derivation prefers id, then name-qualified tag, then a bounded 4-level
// structural path - id and name are the most stable across reloads, the
// structural fallback is last resort and deliberately short.
const extractScript = `() => {
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) return false;
		const s = window.getComputedStyle(el);
		return s.display !== 'none' && s.visibility !== 'hidden' && s.opacity !== '0';
	};
	const esc = (s) => (window.CSS && CSS.escape) ? CSS.escape(s) : s.replace(/([^a-zA-Z0-9_-])/g, '\\$1');
	const selectorFor = (el) => {
		if (el.id) return '#' + esc(el.id);
		const tag = el.tagName.toLowerCase();
		if (el.name) return tag + '[name="' + el.name + '"]';
		const parts = [];
		let cur = el;
		for (let depth = 0; cur && cur.tagName && depth < 4; depth++) {
			let part = cur.tagName.toLowerCase();
			if (cur.classList.length > 0) part += '.' + esc(cur.classList[0]);
			const parent = cur.parentElement;
			if (parent) {
				const same = Array.from(parent.children).filter(c => c.tagName === cur.tagName);
				if (same.length > 1) part += ':nth-of-type(' + (same.indexOf(cur) + 1) + ')';
			}
			parts.unshift(part);
			if (cur.id) { parts[0] = '#' + esc(cur.id); break; }
			cur = parent;
		}
		return parts.join(' > ');
	};
	const labelFor = (el) => {
		if (el.id) {
			const lab = document.querySelector('label[for="' + esc(el.id) + '"]');
			if (lab) return lab.textContent.trim();
		}
		const enclosing = el.closest('label');
		if (enclosing) return enclosing.textContent.trim();
		const sib = el.previousElementSibling;
		if (sib && /^(label|span|div|strong|b|p)$/i.test(sib.tagName)) {
			const t = sib.textContent.trim();
			if (t && t.length <= 80) return t;
		}
		const aria = el.getAttribute('aria-label');
		if (aria) return aria.trim();
		const group = el.closest('.form-group,.field,.form-field,.input-group,.form-row');
		if (group) {
			const lab = group.querySelector('label');
			if (lab) return lab.textContent.trim();
		}
		return '';
	};
	const excluded = {hidden: 1, submit: 1, button: 1, image: 1, reset: 1};
	const forms = [];
	document.querySelectorAll('form').forEach((form) => {
		const fields = [];
		form.querySelectorAll('input, select, textarea').forEach((el) => {
			const type = (el.getAttribute('type') || '').toLowerCase();
			if (excluded[type]) return;
			if (!visible(el)) return;
			const f = {
				selector: selectorFor(el),
				tag: el.tagName.toLowerCase(),
				type: type,
				name: el.name || '',
				id: el.id || '',
				label: labelFor(el),
				placeholder: el.getAttribute('placeholder') || '',
				required: el.required || false,
				options: []
			};
			if (f.tag === 'select') {
				f.options = Array.from(el.options).map(o => ({value: o.value, text: o.textContent.trim()}));
			}
			fields.push(f);
		});
		forms.push({
			selector: selectorFor(form),
			action: form.getAttribute('action') || '',
			method: (form.getAttribute('method') || 'get').toLowerCase(),
			text: form.textContent.replace(/\s+/g, ' ').slice(0, 2000),
			fields: fields
		});
	});
	const buttons = [];
	document.querySelectorAll('button, input[type=submit], input[type=button], a[role=button]').forEach((el) => {
		if (!visible(el)) return;
		buttons.push({
			selector: selectorFor(el),
			text: (el.textContent || el.value || '').trim().replace(/\s+/g, ' ').slice(0, 120),
			type: (el.getAttribute('type') || '').toLowerCase()
		});
	});
	const captchaHints = [];
	document.querySelectorAll('iframe[src], script[src]').forEach((el) => {
		const src = el.getAttribute('src') || '';
		if (/captcha|turnstile|arkose|challenge/i.test(src)) captchaHints.push(src);
	});
	document.querySelectorAll('[class*=captcha i], .cf-turnstile, [data-sitekey]').forEach((el) => {
		captchaHints.push((el.className || '') + ' data-sitekey');
	});
	const alerts = [];
	document.querySelectorAll('[role=alert], [class*=alert i], [class*=error i], [class*=notice i], [class*=message i]').forEach((el) => {
		if (!visible(el)) return;
		alerts.push(el.textContent.trim().replace(/\s+/g, ' '));
	});
	const steps = [];
	document.querySelectorAll('[class*=progress i], [class*=wizard i], [class*=step i], [class*=breadcrumb i]').forEach((el) => {
		const t = el.textContent.trim().replace(/\s+/g, ' ').slice(0, 160);
		if (t) steps.push(t);
	});
	return {
		url: location.href,
		title: document.title,
		forms: forms,
		buttons: buttons,
		captchaHints: captchaHints,
		alerts: alerts,
		steps: steps,
		bodyText: (document.body ? document.body.innerText : '').replace(/\s+/g, ' ').slice(0, 20000)
	};
}`
