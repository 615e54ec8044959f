// Package loginpage provides a headless login and two-factor verification
// flow. State machines are driven by discrete input and timer events and
// expose render models and focus intents to a rendering boundary.
//
// Forms:
//   - LoginForm tracks email and password edits, touched fields and the
//     validation errors shown for them. Errors render only after a field is
//     blurred or the form is submitted, while CanSubmit depends on the values
//     alone.
//   - TwoFactorForm keeps six code slots and a one second countdown. Focus
//     moves are emitted to a Focuser supplied by the renderer. Once the
//     countdown expires the slots are inert until RequestNewCode runs.
//
// Orchestration:
//   - Orchestrator runs the API calls, tracks the loading flag and surfaces a
//     single error string. While offline the fixed OfflineMessage takes
//     precedence over the call failure. Results arriving after Close are
//     dropped without running hooks.
//   - Flow owns the step machine (login, twoFactor, authenticated), mounts a
//     fresh form for each step and reports outcomes through the Notifier.
//
// Activity sinks:
//   - ActivitySink receives step changes, login and verification outcomes.
//     Sinks run best-effort (errors are logged).
//
// MockAPI simulates the network boundary with fixed latencies and a demo
// account. Package httpapi serves it over HTTP and provides a Client that
// implements API against that transport. Package web renders one Flow per
// visitor as HTML pages.
package loginpage
