package gmaps

import (
	"fmt"
	"strconv"
)

// consentScript dismisses the cookie wall shown to fresh profiles in the EU.
const consentScript = `(function () {
  const selectors = [
    'button[aria-label="Accept all"]',
    'button[aria-label="I agree"]',
    'button[aria-label="Alles akzeptieren"]',
    'form[action*="consent"] button'
  ];
  for (const sel of selectors) {
    const btn = document.querySelector(sel);
    if (btn) {
      btn.click();
      return true;
    }
  }
  return false;
})();`

// scrollScript scrolls the first element matching css by one viewport and
// reports whether the element exists.
func scrollScript(css string) string {
	return fmt.Sprintf(`(function () {
  const el = document.querySelector(%s);
  if (!el) {
    return false;
  }
  el.scrollBy(0, el.offsetHeight || 800);
  return true;
})();`, strconv.Quote(css))
}

// clickScript clicks every element matching css and returns the count.
func clickScript(css string) string {
	return fmt.Sprintf(`(function () {
  const nodes = Array.from(document.querySelectorAll(%s));
  for (const n of nodes) {
    n.click();
  }
  return nodes.length;
})();`, strconv.Quote(css))
}
