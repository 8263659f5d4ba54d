// Package steering coordinates the two axis controllers that make up the
// beam steering rig.
//
// The Coordinator owns the X and Y axis controllers, maps operator-facing
// increase/decrease controls through each axis's direction flag into
// physical jog directions, and evaluates the jog-limit interlock that
// forbids motion commands which would slam the output into a voltage rail.
// When the output sits within one jog step of zero the decrease control is
// forbidden; within one step of the hardware limit the increase control is
// forbidden; near zero wins when both conditions hold on a tight-range
// device.
//
// PollLoop drives the once-per-second refresh of both axes, publishing
// state to the configured sinks and recording telemetry samples. A fault on
// one axis never blocks the other axis's refresh.
//
// Axis-to-serial assignments and the command audit trail are persisted
// through the repositories in this package.
package steering
