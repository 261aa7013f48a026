// Package srs implements the spaced-repetition scheduling engine: the
// exponential forgetting curve, the stability/difficulty update rules, the
// new/learning/review/relearning state machine, and the due-set selector.
//
// Every operation is a pure function of its inputs. The Scheduler holds
// only its parameters, never a card, so persistence, per-card write
// serialization and clock reads belong entirely to the caller.
package srs
